// Package config loads and validates tosminer's YAML configuration,
// following Otedama's config.Manager: defaults, then a YAML file, then
// environment variable overrides, then validation.
package config

import (
	"fmt"
	"time"
)

// Config is the full miner configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Devices DevicesConfig `yaml:"devices"`
	Pool    PoolConfig    `yaml:"pool"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// DevicesConfig selects which backends to enumerate and run.
type DevicesConfig struct {
	EnableCPU   bool  `yaml:"enable_cpu"`
	CPUThreads  int   `yaml:"cpu_threads"`
	EnableCL    bool  `yaml:"enable_opencl"`
	EnableCUDA  bool  `yaml:"enable_cuda"`
	CLDevices   []int `yaml:"opencl_devices"`
	CUDADevices []int `yaml:"cuda_devices"`

	OpenCLGlobalWorkSize int `yaml:"opencl_global_work_size"`
	OpenCLBufferCount    int `yaml:"opencl_buffer_count"`
	CUDAGridSizeOverride int `yaml:"cuda_grid_size_override"`
}

// PoolConfig configures the outbound stratum client.
type PoolConfig struct {
	Endpoints []string `yaml:"endpoints"`
	User      string   `yaml:"user"`
	Pass      string   `yaml:"pass"`
	Variant   string   `yaml:"variant"` // "default", "ethproxy", "ethereumstratum"
	TLSMode   string   `yaml:"tls_mode"` // "permissive", "strict"
}

// MetricsConfig configures the optional Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig returns the configuration used when no file is present
// and no field is overridden.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Devices: DevicesConfig{
			EnableCPU:            true,
			EnableCL:             false,
			EnableCUDA:           false,
			OpenCLGlobalWorkSize: 16384,
			OpenCLBufferCount:    3,
		},
		Pool: PoolConfig{
			Variant: "default",
			TLSMode: "permissive",
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9090",
		},
	}
}

// ParseTimeout turns a flag value (e.g. "-shutdown-timeout") into a
// duration without pulling in a flags library the rest of the corpus
// doesn't use for this binary.
func ParseTimeout(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	return d, nil
}
