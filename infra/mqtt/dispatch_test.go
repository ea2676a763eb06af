package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/emsdispatch/core/coordinator"
	"github.com/kilianp07/emsdispatch/core/directory"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/core/provider"
	"github.com/kilianp07/emsdispatch/core/scheduler"
)

var testTiming = provider.Timing{ThinkDelay: 100 * time.Millisecond, TravelToScene: time.Second, Transport: 2 * time.Second}

func startProvider(t *testing.T, ctx context.Context, b *fakeBroker, sched scheduler.Scheduler, spec provider.Spec) (*provider.Actor, *Endpoint) {
	t.Helper()
	st, err := spec.State()
	require.NoError(t, err)
	cli := newTestClient(t, b, "provider-"+spec.ID)
	actor := provider.NewActor(st, NewRemoteCoordinator(cli, spec.ID), provider.WithScheduler(sched), provider.WithTiming(testTiming))
	go actor.Run(ctx)
	ep := NewEndpoint(cli, actor)
	require.NoError(t, ep.Start(ctx))
	return actor, ep
}

func TestDirectoryTracksAnnouncements(t *testing.T) {
	b := newFakeBroker()
	b.install(t)
	ctx := t.Context()
	sched := scheduler.NewManual(time.Unix(0, 0))

	a1, ep := startProvider(t, ctx, b, sched, provider.Spec{ID: "A1", Kind: "ambulance", Tier: "micu", Location: "Downtown"})
	dir := NewDirectory(newTestClient(t, b, "coord"))
	var joined []model.ProviderKind
	dir.OnRegister(func(_ context.Context, k model.ProviderKind) { joined = append(joined, k) })
	require.NoError(t, dir.Start(ctx))

	require.Equal(t, 1, dir.Len())
	assert.Equal(t, []model.ProviderKind{model.Ambulance}, joined)
	h, ok := dir.Lookup("A1")
	require.True(t, ok)
	assert.Equal(t, model.Ambulance, h.Kind())
	assert.Empty(t, dir.FindProviders(ctx, model.Hospital))

	r := directory.Reservation{IncidentID: 9, Kind: model.KindCardiac, Severity: model.SeverityHigh, Location: "Downtown"}
	require.NoError(t, h.Reserve(ctx, r))
	assert.False(t, a1.Snapshot().Available)
	err := h.Reserve(ctx, directory.Reservation{IncidentID: 10})
	assert.ErrorIs(t, err, directory.ErrUnavailable)
	require.NoError(t, h.Release(ctx, 9))
	assert.ErrorIs(t, h.Release(ctx, 9), directory.ErrNotHeld)
	assert.True(t, a1.Snapshot().Available)

	require.NoError(t, ep.Stop())
	assert.Equal(t, 0, dir.Len())
}

func TestIncidentDispatchedOverMQTT(t *testing.T) {
	b := newFakeBroker()
	b.install(t)
	ctx := t.Context()
	sched := scheduler.NewManual(time.Unix(0, 0))

	a1, _ := startProvider(t, ctx, b, sched, provider.Spec{ID: "A1", Kind: "ambulance", Tier: "micu", Location: "Downtown"})
	a2, _ := startProvider(t, ctx, b, sched, provider.Spec{ID: "A2", Kind: "ambulance", Tier: "basic", Location: "Downtown"})
	h1, _ := startProvider(t, ctx, b, sched, provider.Spec{ID: "H1", Kind: "hospital", Tier: "trauma_center", Location: "Downtown"})

	cli := newTestClient(t, b, "coord")
	dir := NewDirectory(cli)
	coord, err := coordinator.New(coordinator.Config{Quorum: 2}, dir, NewTransport(cli), NewGateway(cli), coordinator.WithScheduler(sched))
	require.NoError(t, err)
	t.Cleanup(func() { _ = coord.Close() })
	dir.OnRegister(coord.ProviderRegistered)
	require.NoError(t, dir.Start(ctx))
	require.NoError(t, NewListener(cli, coord).Start(ctx))
	require.Equal(t, 3, dir.Len())

	id, err := coord.Submit(ctx, model.KindCardiac, model.SeverityCritical, "Downtown")
	require.NoError(t, err)

	// both ambulances think
	require.Eventually(t, func() bool { return sched.Pending() == 2 }, time.Second, time.Millisecond)
	sched.Advance(testTiming.ThinkDelay)

	inc, _ := coord.Incident(id)
	assert.Equal(t, "A1", inc.AssignedAmbulance)
	assert.Equal(t, model.StateHospitalBidding, inc.State)
	assert.False(t, a1.Snapshot().Available)
	assert.True(t, a2.Snapshot().Available)

	// travel timer and hospital thinking
	require.Eventually(t, func() bool { return sched.Pending() == 2 }, time.Second, time.Millisecond)
	sched.Advance(testTiming.ThinkDelay)

	inc, _ = coord.Incident(id)
	assert.Equal(t, "H1", inc.AssignedHospital)
	assert.Equal(t, model.StateEnRoute, inc.State)
	assert.Equal(t, 1, h1.Snapshot().Load)
	assert.Len(t, b.publishes("ems/gateway/route_priority"), 1)
	assert.Len(t, b.publishes("ems/gateway/destination"), 1)

	// travel timer and patient delivery
	require.Eventually(t, func() bool { return sched.Pending() == 2 }, time.Second, time.Millisecond)
	sched.Advance(10 * time.Second)

	inc, _ = coord.Incident(id)
	assert.Equal(t, model.StateCompleted, inc.State)
	assert.InDelta(t, 3.0, inc.ResponseSeconds, 1e-9)
	assert.True(t, a1.Snapshot().Available)
	assert.Equal(t, 0, h1.Snapshot().Load)
	assert.Len(t, b.publishes("ems/gateway/traffic_resume"), 1)
}
