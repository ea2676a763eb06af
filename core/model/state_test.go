package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	assert.True(t, StateCreated.CanTransition(StateAmbulanceBidding))
	assert.True(t, StateAmbulanceBidding.CanTransition(StateCancelled))
	assert.True(t, StateHospitalAssigned.CanTransition(StateCompleted))
	assert.False(t, StateAmbulanceAssigned.CanTransition(StateCompleted))
	assert.False(t, StateEnRoute.CanTransition(StateCancelled))
	assert.False(t, StateCompleted.CanTransition(StateCancelled))

	assert.True(t, StateHospitalBidding.Cancellable())
	assert.False(t, StateHospitalAssigned.Cancellable())
	assert.True(t, StateCancelled.Terminal())

	k, ok := StateHospitalBidding.Bidding()
	assert.True(t, ok)
	assert.Equal(t, Hospital, k)
	_, ok = StateEnRoute.Bidding()
	assert.False(t, ok)
}

func TestEnumsText(t *testing.T) {
	inc := Incident{ID: 1, Kind: KindCardiac, Severity: SeverityCritical, State: StateEnRoute}
	b, err := json.Marshal(inc)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"cardiac"`)
	assert.Contains(t, string(b), `"state":"EN_ROUTE"`)

	var out Incident
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, KindCardiac, out.Kind)
	assert.Equal(t, SeverityCritical, out.Severity)

	_, err = ParseKind("burns")
	assert.Error(t, err)
}

func TestProposalBetter(t *testing.T) {
	a := Proposal{Score: 70, Seq: 1}
	b := Proposal{Score: 70, Seq: 2}
	c := Proposal{Score: 85, Seq: 3}
	assert.True(t, a.Better(b))
	assert.True(t, c.Better(a))
	assert.False(t, b.Better(a))
}

func TestGazetteerDistance(t *testing.T) {
	g := DefaultGazetteer()
	assert.Equal(t, 0.0, g.Distance("Downtown", "Downtown"))
	assert.InDelta(t, 7.211, g.Distance("Downtown", "Suburb_A"), 0.001)

	d := g.Distance("Nowhere", "Elsewhere")
	assert.GreaterOrEqual(t, d, 0.0)
	assert.Less(t, d, 10.0)
	assert.Equal(t, d, g.Distance("Nowhere", "Elsewhere"))
}

func TestProviderStateClone(t *testing.T) {
	p := ProviderState{Capabilities: map[Kind]int{KindTrauma: 10}, Specialists: []Specialist{{Specialty: "Surgery", Available: true}}}
	c := p.Clone()
	c.Capabilities[KindTrauma] = 99
	c.Specialists[0].Available = false
	assert.Equal(t, 10, p.Capabilities[KindTrauma])
	assert.True(t, p.Specialists[0].Available)
	assert.Equal(t, 50, p.Capability(KindGeneral))
}
