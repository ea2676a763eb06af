package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/emsdispatch/core/archive"
	"github.com/kilianp07/emsdispatch/core/coordinator"
	"github.com/kilianp07/emsdispatch/core/metrics"
	"github.com/kilianp07/emsdispatch/infra/logger"
	"github.com/kilianp07/emsdispatch/infra/monitoring"
	"github.com/kilianp07/emsdispatch/infra/mqtt"
	"github.com/kilianp07/emsdispatch/infra/tracing"
)

type Config struct {
	MQTT        mqtt.Config        `json:"mqtt"`
	Coordinator coordinator.Config `json:"coordinator"`
	Providers   ProvidersConfig    `json:"providers"`
	Metrics     metrics.Config     `json:"metrics"`
	Logging     logger.Settings    `json:"logging"`
	Archive     archive.Config     `json:"archive"`
	Sentry      monitoring.Config  `json:"sentry"`
	Tracing     tracing.Config     `json:"tracing"`
	Simulation  SimulationConfig   `json:"simulation"`
	API         APIConfig          `json:"api"`
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	// Addr is the listen address. Empty disables the API.
	Addr string `json:"addr"`
}

// Load reads the configuration file, applies K_ prefixed environment
// overrides (K_COORDINATOR__QUORUM=3) and validates every section.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if cfg.Providers.RosterFile != "" && !filepath.IsAbs(cfg.Providers.RosterFile) {
		cfg.Providers.RosterFile = filepath.Join(filepath.Dir(path), cfg.Providers.RosterFile)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.MQTT.SetDefaults()
	c.Coordinator.SetDefaults()
	c.Providers.SetDefaults()
	c.Logging.SetDefaults()
	c.Archive.SetDefaults()
	c.Tracing.SetDefaults()
	c.Simulation.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Providers.Mode == ModeMQTT {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	checks := []struct {
		name string
		fn   func() error
	}{
		{"coordinator", c.Coordinator.Validate},
		{"providers", c.Providers.Validate},
		{"logging", c.Logging.Validate},
		{"archive", c.Archive.Validate},
		{"tracing", c.Tracing.Validate},
		{"simulation", c.Simulation.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}
