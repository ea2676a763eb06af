// Package provider implements the ambulance and hospital actors that answer
// calls for proposals, and the scoring rules they bid with.
package provider

import (
	"math"
	"strings"

	"github.com/kilianp07/emsdispatch/core/model"
)

// Scorer rates how well a provider fits an incident. Results are in [0,100].
type Scorer interface {
	Score(cfp model.CallForProposal, state model.ProviderState) int
}

// AmbulanceScorer favours equipment fit, severity, proximity and availability.
type AmbulanceScorer struct {
	Gazetteer model.Gazetteer
}

func (s AmbulanceScorer) Score(cfp model.CallForProposal, st model.ProviderState) int {
	score := st.Capability(cfp.Kind)
	switch cfp.Severity {
	case model.SeverityCritical:
		score += 20
	case model.SeverityHigh:
		score += 10
	}
	gaz := s.Gazetteer
	if gaz == nil {
		gaz = model.DefaultGazetteer()
	}
	km := gaz.Distance(st.Location, cfp.Location)
	if proximity := 20 - int(math.Round(2*km)); proximity > 0 {
		score += proximity
	}
	if st.Available {
		score += 15
	}
	return clamp(score)
}

// HospitalScorer favours equipment fit, severity, spare beds and specialist skill.
type HospitalScorer struct{}

func (HospitalScorer) Score(cfp model.CallForProposal, st model.ProviderState) int {
	score := st.Capability(cfp.Kind)
	switch cfp.Severity {
	case model.SeverityCritical:
		score += 10
	case model.SeverityHigh:
		score += 5
	}
	if st.Load < st.Capacity/2 {
		score += 10
	}
	if idx := BestSpecialist(st.Specialists, cfp.Kind); idx >= 0 {
		score += st.Specialists[idx].Skill / 10
	}
	return clamp(score)
}

// ScorerFor returns the default scorer for a provider kind.
func ScorerFor(kind model.ProviderKind, gaz model.Gazetteer) Scorer {
	if kind == model.Hospital {
		return HospitalScorer{}
	}
	return AmbulanceScorer{Gazetteer: gaz}
}

var specialtyAliases = map[model.Kind]string{
	model.KindCardiac:      "cardio",
	model.KindTrauma:       "surgery",
	model.KindNeurological: "neuro",
}

// MatchesSpecialty reports whether a specialty can treat the incident kind.
// Emergency specialties match every kind.
func MatchesSpecialty(specialty string, kind model.Kind) bool {
	s := strings.ToLower(specialty)
	if strings.Contains(s, "emergency") || strings.Contains(s, kind.String()) {
		return true
	}
	if alias, ok := specialtyAliases[kind]; ok && strings.Contains(s, alias) {
		return true
	}
	return false
}

// BestSpecialist returns the index of the most skilled available specialist
// matching the kind, or -1.
func BestSpecialist(specs []model.Specialist, kind model.Kind) int {
	best := -1
	for i, sp := range specs {
		if !sp.Available || !MatchesSpecialty(sp.Specialty, kind) {
			continue
		}
		if best < 0 || sp.Skill > specs[best].Skill {
			best = i
		}
	}
	return best
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
