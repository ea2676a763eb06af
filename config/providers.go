package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/core/provider"
)

// Provider transport modes.
const (
	ModeLocal = "local"
	ModeMQTT  = "mqtt"
)

// ProvidersConfig describes the provider fleet and how the coordinator reaches it.
type ProvidersConfig struct {
	// Mode is "local" for an in-process fleet or "mqtt" for remote providers.
	Mode string `json:"mode"`
	// Roster lists providers inline.
	Roster []provider.Spec `json:"roster"`
	// RosterFile points to a YAML or JSON roster appended to Roster.
	RosterFile string `json:"roster_file"`

	ThinkDelayMS    int `json:"think_delay_ms"`
	TravelToSceneMS int `json:"travel_to_scene_ms"`
	TransportMS     int `json:"transport_ms"`

	// Gazetteer adds or overrides location coordinates.
	Gazetteer map[string]model.Point `json:"gazetteer"`
}

// SetDefaults applies sane defaults.
func (c *ProvidersConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = ModeLocal
	}
	d := provider.DefaultTiming()
	if c.ThinkDelayMS == 0 {
		c.ThinkDelayMS = int(d.ThinkDelay / time.Millisecond)
	}
	if c.TravelToSceneMS == 0 {
		c.TravelToSceneMS = int(d.TravelToScene / time.Millisecond)
	}
	if c.TransportMS == 0 {
		c.TransportMS = int(d.Transport / time.Millisecond)
	}
}

// Validate checks the mode and timings.
func (c ProvidersConfig) Validate() error {
	if c.Mode != ModeLocal && c.Mode != ModeMQTT {
		return fmt.Errorf("unknown mode %s", c.Mode)
	}
	if c.ThinkDelayMS < 0 || c.TravelToSceneMS < 0 || c.TransportMS < 0 {
		return fmt.Errorf("timings must not be negative")
	}
	return nil
}

// Specs returns the inline roster followed by the roster file entries.
func (c ProvidersConfig) Specs() ([]provider.Spec, error) {
	specs := append([]provider.Spec(nil), c.Roster...)
	if c.RosterFile != "" {
		more, err := provider.LoadRoster(c.RosterFile)
		if err != nil {
			return nil, fmt.Errorf("roster %s: %w", c.RosterFile, err)
		}
		specs = append(specs, more...)
	}
	return specs, nil
}

// Timing converts the configured delays.
func (c ProvidersConfig) Timing() provider.Timing {
	return provider.Timing{
		ThinkDelay:    time.Duration(c.ThinkDelayMS) * time.Millisecond,
		TravelToScene: time.Duration(c.TravelToSceneMS) * time.Millisecond,
		Transport:     time.Duration(c.TransportMS) * time.Millisecond,
	}
}

// GazetteerMap merges the configured locations over the default districts.
func (c ProvidersConfig) GazetteerMap() model.Gazetteer {
	g := model.DefaultGazetteer()
	for name, p := range c.Gazetteer {
		g[model.Location(name)] = p
	}
	return g
}
