package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/emsdispatch/core/model"
)

// Spec describes one provider in a roster. Unset fields come from the tier preset.
type Spec struct {
	ID           string             `json:"id" yaml:"id"`
	Kind         string             `json:"kind" yaml:"kind"`
	Tier         string             `json:"tier" yaml:"tier"`
	Location     string             `json:"location" yaml:"location"`
	Capacity     int                `json:"capacity" yaml:"capacity"`
	Capabilities map[string]int     `json:"capabilities" yaml:"capabilities"`
	Specialists  []model.Specialist `json:"specialists" yaml:"specialists"`
}

type rosterFile struct {
	Providers []Spec `json:"providers" yaml:"providers"`
}

// State builds the initial provider state from the spec.
func (s Spec) State() (model.ProviderState, error) {
	if s.ID == "" {
		return model.ProviderState{}, fmt.Errorf("provider id is required")
	}
	kind, err := model.ParseProviderKind(s.Kind)
	if err != nil {
		return model.ProviderState{}, fmt.Errorf("provider %s: %w", s.ID, err)
	}
	tierName := s.Tier
	if tierName == "" {
		tierName = "basic"
		if kind == model.Hospital {
			tierName = "general"
		}
	}
	tier, err := LookupTier(tierName, kind)
	if err != nil {
		return model.ProviderState{}, fmt.Errorf("provider %s: %w", s.ID, err)
	}
	for name, v := range s.Capabilities {
		k, err := model.ParseKind(name)
		if err != nil {
			return model.ProviderState{}, fmt.Errorf("provider %s: %w", s.ID, err)
		}
		tier.Capabilities[k] = v
	}
	st := model.ProviderState{
		ID:           s.ID,
		Kind:         kind,
		Tier:         tierName,
		Location:     model.Location(s.Location),
		Capabilities: tier.Capabilities,
	}
	switch kind {
	case model.Ambulance:
		st.Available = true
	case model.Hospital:
		st.Capacity = tier.Capacity
		if s.Capacity > 0 {
			st.Capacity = s.Capacity
		}
		st.Specialists = tier.Specialists
		if len(s.Specialists) > 0 {
			st.Specialists = make([]model.Specialist, len(s.Specialists))
			for i, sp := range s.Specialists {
				sp.Available = true
				st.Specialists[i] = sp
			}
		}
	}
	return st, nil
}

// LoadRoster reads provider specs from a YAML or JSON file.
func LoadRoster(path string) ([]Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return DecodeRoster(f, ext)
}

// DecodeRoster reads provider specs in the given format ("yaml" or "json").
func DecodeRoster(r io.Reader, format string) ([]Spec, error) {
	var rf rosterFile
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&rf); err != nil {
			return nil, fmt.Errorf("decode roster: %w", err)
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&rf); err != nil {
			return nil, fmt.Errorf("decode roster: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported roster format: %s", format)
	}
	return rf.Providers, nil
}
