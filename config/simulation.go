package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/emsdispatch/core/model"
)

// SimulationConfig configures the random incident generator.
type SimulationConfig struct {
	Enabled            bool     `json:"enabled"`
	MinIntervalSeconds float64  `json:"min_interval_seconds"`
	MaxIntervalSeconds float64  `json:"max_interval_seconds"`
	JitterPct          float64  `json:"jitter_pct"`
	Locations          []string `json:"locations"`
	Kinds              []string `json:"kinds"`
	Severities         []string `json:"severities"`
	// Count stops the generator after this many incidents. Zero runs until canceled.
	Count int   `json:"count"`
	Seed  int64 `json:"seed"`
}

// SetDefaults applies fallback values for optional fields.
func (c *SimulationConfig) SetDefaults() {
	if c.MinIntervalSeconds <= 0 {
		c.MinIntervalSeconds = 3
	}
	if c.MaxIntervalSeconds <= 0 {
		c.MaxIntervalSeconds = 8
	}
	if c.JitterPct == 0 {
		c.JitterPct = 0.1
	}
	if len(c.Locations) == 0 {
		c.Locations = []string{"Downtown", "Suburb_A", "Industrial_Zone", "ResidentialArea", "Highway_Exit"}
	}
}

// Validate checks the configuration ranges.
func (c SimulationConfig) Validate() error {
	if c.MinIntervalSeconds > c.MaxIntervalSeconds {
		return fmt.Errorf("min_interval_seconds > max_interval_seconds")
	}
	if c.JitterPct < 0 || c.JitterPct >= 1 {
		return fmt.Errorf("jitter_pct must be within [0,1)")
	}
	if c.Count < 0 {
		return fmt.Errorf("count must not be negative")
	}
	for _, k := range c.Kinds {
		if _, err := model.ParseKind(k); err != nil {
			return err
		}
	}
	for _, s := range c.Severities {
		if _, err := model.ParseSeverity(s); err != nil {
			return err
		}
	}
	return nil
}

// MinInterval returns the shortest pause between incidents.
func (c SimulationConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalSeconds * float64(time.Second))
}

// MaxInterval returns the longest pause between incidents.
func (c SimulationConfig) MaxInterval() time.Duration {
	return time.Duration(c.MaxIntervalSeconds * float64(time.Second))
}
