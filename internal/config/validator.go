package config

import (
	"errors"
	"fmt"
)

// Validate enforces the minimal logical constraints Config must satisfy
// before the farm and pool client are built from it.
func Validate(cfg *Config) error {
	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if err := validateDevices(&cfg.Devices); err != nil {
		return fmt.Errorf("devices: %w", err)
	}
	if err := validatePool(&cfg.Pool); err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	return nil
}

func validateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level %q", level)
	}
}

func validateDevices(cfg *DevicesConfig) error {
	if !cfg.EnableCPU && !cfg.EnableCL && !cfg.EnableCUDA {
		return errors.New("at least one of enable_cpu, enable_opencl, enable_cuda must be true")
	}
	if cfg.OpenCLGlobalWorkSize < 0 {
		return errors.New("opencl_global_work_size must not be negative")
	}
	if cfg.CUDAGridSizeOverride < 0 {
		return errors.New("cuda_grid_size_override must not be negative")
	}
	return nil
}

func validatePool(cfg *PoolConfig) error {
	if len(cfg.Endpoints) == 0 {
		return errors.New("at least one endpoint is required")
	}
	if cfg.User == "" {
		return errors.New("user is required")
	}
	switch cfg.Variant {
	case "default", "ethproxy", "ethereumstratum":
	default:
		return fmt.Errorf("invalid variant %q", cfg.Variant)
	}
	switch cfg.TLSMode {
	case "permissive", "strict":
	default:
		return fmt.Errorf("invalid tls_mode %q", cfg.TLSMode)
	}
	return nil
}
