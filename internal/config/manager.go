package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manager owns the loaded Config and applies the default -> file -> env ->
// validate pipeline Otedama's config.Manager follows.
type Manager struct {
	logger     *zap.Logger
	configPath string
	config     *Config
}

// NewManager loads configPath (if it exists) over the defaults, applies
// environment overrides, validates, and returns the manager.
func NewManager(logger *zap.Logger, configPath string) (*Manager, error) {
	m := &Manager{logger: logger, configPath: configPath}
	if err := m.Load(); err != nil {
		return nil, fmt.Errorf("config: initial load failed: %w", err)
	}
	return m, nil
}

// Load re-reads configPath from disk, reapplying defaults and env
// overrides. Safe to call again to pick up a changed file.
func (m *Manager) Load() error {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(m.configPath); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("config: read %s: %w", m.configPath, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", m.configPath, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}

	m.config = cfg
	if m.logger != nil {
		m.logger.Info("configuration loaded", zap.String("path", m.configPath))
	}
	return nil
}

// Get returns the currently loaded configuration.
func (m *Manager) Get() *Config { return m.config }
