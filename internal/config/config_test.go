package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigFailsValidationWithoutPoolSettings(t *testing.T) {
	cfg := DefaultConfig()
	require.Error(t, Validate(cfg), "DefaultConfig() has no pool endpoints or user")
}

func TestDefaultConfigPassesValidationOncePoolIsFilledIn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pool.Endpoints = []string{"stratum+tcp://pool.example.com:3333"}
	cfg.Pool.User = "worker1"
	require.NoError(t, Validate(cfg))
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pool.Endpoints = []string{"stratum+tcp://pool.example.com:3333"}
	cfg.Pool.User = "worker1"
	cfg.LogLevel = "verbose"
	require.Error(t, Validate(cfg), "must reject an unrecognized log level")
}

func TestValidateRejectsNoDevicesEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pool.Endpoints = []string{"stratum+tcp://pool.example.com:3333"}
	cfg.Pool.User = "worker1"
	cfg.Devices.EnableCPU = false
	require.Error(t, Validate(cfg), "must reject a config with no device backend enabled")
}

func TestValidateRejectsNegativeWorkSizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pool.Endpoints = []string{"stratum+tcp://pool.example.com:3333"}
	cfg.Pool.User = "worker1"
	cfg.Devices.OpenCLGlobalWorkSize = -1
	require.Error(t, Validate(cfg), "must reject a negative opencl_global_work_size")
}

func TestValidateRejectsInvalidVariantAndTLSMode(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.Pool.Endpoints = []string{"stratum+tcp://pool.example.com:3333"}
		cfg.Pool.User = "worker1"
		return cfg
	}

	cfg := base()
	cfg.Pool.Variant = "bogus"
	require.Error(t, Validate(cfg), "must reject an unknown pool variant")

	cfg = base()
	cfg.Pool.TLSMode = "bogus"
	require.Error(t, Validate(cfg), "must reject an unknown tls_mode")
}

func TestApplyEnvOverridesLayersOverDefaults(t *testing.T) {
	vars := map[string]string{
		"TOSMINER_LOG_LEVEL":           "debug",
		"TOSMINER_POOL_ENDPOINTS":      "stratum+tcp://a.example.com:3333, stratum+tcp://b.example.com:3333",
		"TOSMINER_POOL_USER":           "worker9",
		"TOSMINER_POOL_PASS":           "x",
		"TOSMINER_POOL_VARIANT":        "ethproxy",
		"TOSMINER_ENABLE_CPU":          "false",
		"TOSMINER_ENABLE_OPENCL":       "true",
		"TOSMINER_ENABLE_CUDA":         "true",
		"TOSMINER_METRICS_LISTEN_ADDR": ":1234",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, []string{"stratum+tcp://a.example.com:3333", "stratum+tcp://b.example.com:3333"}, cfg.Pool.Endpoints)
	require.Equal(t, "worker9", cfg.Pool.User)
	require.Equal(t, "ethproxy", cfg.Pool.Variant)
	require.False(t, cfg.Devices.EnableCPU, "EnableCPU must be overridden to false")
	require.True(t, cfg.Devices.EnableCL, "EnableCL must be overridden to true")
	require.True(t, cfg.Devices.EnableCUDA, "EnableCUDA must be overridden to true")
	require.Equal(t, ":1234", cfg.Metrics.ListenAddr)
}

func TestApplyEnvOverridesIgnoresMalformedBooleans(t *testing.T) {
	t.Setenv("TOSMINER_ENABLE_CUDA", "not-a-bool")
	cfg := DefaultConfig()
	before := cfg.Devices.EnableCUDA
	applyEnvOverrides(cfg)
	require.Equal(t, before, cfg.Devices.EnableCUDA, "a malformed boolean env override must leave the existing value untouched")
}

func TestParseTimeoutRoundTrips(t *testing.T) {
	d, err := ParseTimeout("30s")
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, d)
}

func TestParseTimeoutRejectsMalformedInput(t *testing.T) {
	_, err := ParseTimeout("not-a-duration")
	require.Error(t, err)
}

func TestManagerLoadsYAMLFileOverDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tosminer.yaml")
	yamlBody := "log_level: debug\n" +
		"pool:\n" +
		"  endpoints:\n" +
		"    - stratum+tcp://pool.example.com:3333\n" +
		"  user: worker1\n" +
		"  variant: default\n" +
		"  tls_mode: permissive\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	m, err := NewManager(nil, path)
	require.NoError(t, err)
	cfg := m.Get()
	require.Equal(t, "debug", cfg.LogLevel, "from file")
	require.Equal(t, "worker1", cfg.Pool.User, "from file")
	require.Equal(t, 16384, cfg.Devices.OpenCLGlobalWorkSize, "unspecified fields keep their defaults")
}

func TestManagerFailsOnInvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tosminer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o644))
	_, err := NewManager(nil, path)
	require.Error(t, err, "must fail when the loaded config does not validate")
}

func TestManagerToleratesMissingConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist.yaml")
	_, err := NewManager(nil, path)
	require.Error(t, err, "defaults alone don't validate")
	require.False(t, err != nil && os.IsNotExist(err), "a missing config file must not surface as an os.IsNotExist error")
}
