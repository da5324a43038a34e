package config

import (
	"os"
	"strconv"
	"strings"
)

// envPrefix matches Otedama's environment-variable convention, renamed
// for this project.
const envPrefix = "TOSMINER"

// applyEnvOverrides layers a small set of environment variables over an
// already-loaded Config, mirroring Otedama's EnvLoader but limited to
// the handful of settings operators actually need to override without a
// file (container deployments, CI).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPrefix + "_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "_POOL_ENDPOINTS"); v != "" {
		cfg.Pool.Endpoints = splitTrim(v)
	}
	if v := os.Getenv(envPrefix + "_POOL_USER"); v != "" {
		cfg.Pool.User = v
	}
	if v := os.Getenv(envPrefix + "_POOL_PASS"); v != "" {
		cfg.Pool.Pass = v
	}
	if v := os.Getenv(envPrefix + "_POOL_VARIANT"); v != "" {
		cfg.Pool.Variant = v
	}
	if v := os.Getenv(envPrefix + "_ENABLE_CPU"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Devices.EnableCPU = b
		}
	}
	if v := os.Getenv(envPrefix + "_ENABLE_OPENCL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Devices.EnableCL = b
		}
	}
	if v := os.Getenv(envPrefix + "_ENABLE_CUDA"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Devices.EnableCUDA = b
		}
	}
	if v := os.Getenv(envPrefix + "_METRICS_LISTEN_ADDR"); v != "" {
		cfg.Metrics.ListenAddr = v
	}
}

func splitTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
