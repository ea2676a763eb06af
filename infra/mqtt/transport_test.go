package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/emsdispatch/core/events"
	"github.com/kilianp07/emsdispatch/core/model"
)

func cancelFor(id string) model.Cancel {
	return model.Cancel{IncidentID: 1, ProviderKind: model.Ambulance, ProviderID: id}
}

func newTestClient(t *testing.T, b *fakeBroker, id string) *PahoClient {
	t.Helper()
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", ClientID: id, BackoffMS: 1})
	require.NoError(t, err)
	return cli
}

func lastEnvelope(t *testing.T, b *fakeBroker, topic string) Envelope {
	t.Helper()
	pubs := b.publishes(topic)
	require.NotEmpty(t, pubs, topic)
	var env Envelope
	require.NoError(t, json.Unmarshal(pubs[len(pubs)-1].payload, &env))
	return env
}

func TestTransportRoutesToProviderInbox(t *testing.T) {
	b := newFakeBroker()
	b.install(t)
	tr := NewTransport(newTestClient(t, b, "coord"))
	ctx := t.Context()

	cfp := model.CallForProposal{IncidentID: 4, ProviderKind: model.Ambulance, Kind: model.KindCardiac, Severity: model.SeverityHigh, Location: "Downtown"}
	require.NoError(t, tr.SendCFP(ctx, "A1", cfp))
	env := lastEnvelope(t, b, "ems/providers/A1/inbox")
	assert.Equal(t, TypeCFP, env.Type)
	var got model.CallForProposal
	require.NoError(t, env.Decode(&got))
	assert.Equal(t, cfp, got)

	require.NoError(t, tr.SendDestination(ctx, model.Destination{IncidentID: 4, AmbulanceID: "A1", HospitalID: "H1"}))
	assert.Equal(t, TypeDestination, lastEnvelope(t, b, "ems/providers/A1/inbox").Type)

	require.NoError(t, tr.SendReject(ctx, model.Reject{IncidentID: 4, ProviderKind: model.Hospital, ProviderID: "H2"}))
	assert.Equal(t, TypeReject, lastEnvelope(t, b, "ems/providers/H2/inbox").Type)

	assert.Error(t, tr.SendAccept(ctx, model.Accept{IncidentID: 4}))
}

func TestGatewayPublishesActions(t *testing.T) {
	b := newFakeBroker()
	b.install(t)
	gw := NewGateway(newTestClient(t, b, "coord"))
	ctx := t.Context()

	gw.RequestRoutePriority(ctx, "Suburb_A", 5*time.Minute)
	var rp model.RoutePriorityRequest
	pubs := b.publishes("ems/gateway/route_priority")
	require.Len(t, pubs, 1)
	require.NoError(t, json.Unmarshal(pubs[0].payload, &rp))
	assert.Equal(t, model.Location("Suburb_A"), rp.Location)
	assert.Equal(t, 5*time.Minute, rp.Duration)

	gw.BroadcastTrafficHold(ctx, "Suburb_A")
	gw.BroadcastTrafficResume(ctx, "Suburb_A")
	gw.ClearRoutePriority(ctx, "Suburb_A")
	gw.NotifyDestination(ctx, model.DestinationNotice{IncidentID: 1, AmbulanceID: "A1", HospitalID: "H1"})
	for _, topic := range []string{"traffic_hold", "traffic_resume", "route_priority_clear", "destination"} {
		assert.Len(t, b.publishes("ems/gateway/"+topic), 1, topic)
	}

	gw.Emit(ctx, events.InvariantViolated{IncidentID: 3, Err: assert.AnError})
	pubs = b.publishes("ems/events/invariant_violated")
	require.Len(t, pubs, 1)
	var n struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(pubs[0].payload, &n))
	assert.Equal(t, "invariant_violated", n.Event)
	assert.Equal(t, assert.AnError.Error(), n.Data["error"])
}
