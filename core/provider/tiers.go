package provider

import (
	"fmt"

	"github.com/kilianp07/emsdispatch/core/model"
)

// Tier is a preset of capabilities for a class of provider.
type Tier struct {
	Kind         model.ProviderKind
	Capabilities map[model.Kind]int
	Capacity     int
	Specialists  []model.Specialist
}

func caps(trauma, cardiac, respiratory, neuro, general int) map[model.Kind]int {
	return map[model.Kind]int{
		model.KindTrauma:       trauma,
		model.KindCardiac:      cardiac,
		model.KindRespiratory:  respiratory,
		model.KindNeurological: neuro,
		model.KindGeneral:      general,
	}
}

func doctors(pairs ...any) []model.Specialist {
	out := make([]model.Specialist, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.Specialist{Specialty: pairs[i].(string), Skill: pairs[i+1].(int), Available: true})
	}
	return out
}

// Tiers lists the built-in presets by name.
var Tiers = map[string]Tier{
	"basic":    {Kind: model.Ambulance, Capabilities: caps(40, 30, 35, 25, 50)},
	"advanced": {Kind: model.Ambulance, Capabilities: caps(70, 85, 80, 65, 75)},
	"micu":     {Kind: model.Ambulance, Capabilities: caps(95, 100, 95, 90, 90)},

	"general": {
		Kind:         model.Hospital,
		Capabilities: caps(40, 30, 35, 25, 60),
		Capacity:     10,
		Specialists:  doctors("General Medicine", 70, "Emergency", 65),
	},
	"regional": {
		Kind:         model.Hospital,
		Capabilities: caps(70, 80, 65, 60, 75),
		Capacity:     20,
		Specialists:  doctors("Cardiology", 85, "Surgery", 80, "Emergency", 75, "General Medicine", 78),
	},
	"trauma_center": {
		Kind:         model.Hospital,
		Capabilities: caps(98, 100, 95, 97, 90),
		Capacity:     30,
		Specialists: doctors("Trauma Surgery", 98, "Cardiology", 99, "Neurosurgery", 97,
			"Emergency Medicine", 95, "Cardiac Surgery", 98, "Critical Care", 96),
	},
}

// LookupTier returns a copy of the named preset.
func LookupTier(name string, kind model.ProviderKind) (Tier, error) {
	t, ok := Tiers[name]
	if !ok {
		return Tier{}, fmt.Errorf("unknown tier %q", name)
	}
	if t.Kind != kind {
		return Tier{}, fmt.Errorf("tier %q is for %s, not %s", name, t.Kind, kind)
	}
	out := t
	out.Capabilities = make(map[model.Kind]int, len(t.Capabilities))
	for k, v := range t.Capabilities {
		out.Capabilities[k] = v
	}
	out.Specialists = append([]model.Specialist(nil), t.Specialists...)
	return out, nil
}
