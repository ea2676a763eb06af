package provider

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/emsdispatch/core/directory"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/core/scheduler"
)

type recordingCoordinator struct {
	mu          sync.Mutex
	proposals   []model.Proposal
	refusals    []model.Refusal
	completions map[uint64]float64
}

func newRecordingCoordinator() *recordingCoordinator {
	return &recordingCoordinator{completions: make(map[uint64]float64)}
}

func (r *recordingCoordinator) ReceiveProposal(_ context.Context, p model.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proposals = append(r.proposals, p)
	return nil
}

func (r *recordingCoordinator) ReceiveRefusal(_ context.Context, ref model.Refusal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refusals = append(r.refusals, ref)
	return nil
}

func (r *recordingCoordinator) CompleteIncident(_ context.Context, id uint64, secs float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions[id] = secs
	return nil
}

var testTiming = Timing{ThinkDelay: 100 * time.Millisecond, TravelToScene: 5 * time.Second, Transport: 8 * time.Second}

func startActor(t *testing.T, spec Spec) (*Actor, *recordingCoordinator, *scheduler.Manual) {
	t.Helper()
	st, err := spec.State()
	require.NoError(t, err)
	sched := scheduler.NewManual(time.Unix(0, 0))
	coord := newRecordingCoordinator()
	a := NewActor(st, coord, WithScheduler(sched), WithTiming(testTiming))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return a, coord, sched
}

func waitPending(t *testing.T, s *scheduler.Manual, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Pending() == n }, time.Second, 5*time.Millisecond)
}

func TestActorProposesAfterThinkDelay(t *testing.T) {
	a, coord, sched := startActor(t, Spec{ID: "A1", Kind: "ambulance", Tier: "advanced", Location: "Downtown"})
	ctx := context.Background()

	require.NoError(t, a.Deliver(ctx, model.CallForProposal{IncidentID: 1, ProviderKind: model.Ambulance,
		Kind: model.KindCardiac, Severity: model.SeverityHigh, Location: "Downtown"}))
	waitPending(t, sched, 1)

	sched.Advance(50 * time.Millisecond)
	assert.Empty(t, coord.proposals)
	sched.Advance(50 * time.Millisecond)

	require.Len(t, coord.proposals, 1)
	p := coord.proposals[0]
	assert.Equal(t, "A1", p.ProviderID)
	assert.Equal(t, uint64(1), p.IncidentID)
	assert.Equal(t, 100, p.Score)
	assert.Equal(t, "advanced", p.Metadata["tier"])
}

func TestActorRefusesWhenBusy(t *testing.T) {
	a, coord, sched := startActor(t, Spec{ID: "A1", Kind: "ambulance"})
	ctx := context.Background()
	require.NoError(t, a.Reserve(ctx, directory.Reservation{IncidentID: 9}))

	require.NoError(t, a.Deliver(ctx, model.CallForProposal{IncidentID: 10, ProviderKind: model.Ambulance}))
	waitPending(t, sched, 1)
	sched.Advance(testTiming.ThinkDelay)

	assert.Empty(t, coord.proposals)
	require.Len(t, coord.refusals, 1)
	assert.Equal(t, "unavailable", coord.refusals[0].Reason)
}

func TestActorCompletesTrip(t *testing.T) {
	a, coord, sched := startActor(t, Spec{ID: "A1", Kind: "ambulance"})
	ctx := context.Background()

	require.NoError(t, a.Deliver(ctx, model.Accept{IncidentID: 3, ProviderKind: model.Ambulance, ProviderID: "A1", Location: "Downtown"}))
	waitPending(t, sched, 1)
	sched.Advance(2 * time.Second)

	require.NoError(t, a.Deliver(ctx, model.Destination{IncidentID: 3, AmbulanceID: "A1", HospitalID: "H1"}))
	waitPending(t, sched, 2)

	sched.Advance(5 * time.Second)
	assert.Empty(t, coord.completions)
	sched.Advance(6 * time.Second)

	require.Contains(t, coord.completions, uint64(3))
	assert.InDelta(t, 13.0, coord.completions[3], 1e-9)
}

func TestActorCancelStopsTrip(t *testing.T) {
	a, coord, sched := startActor(t, Spec{ID: "A1", Kind: "ambulance"})
	ctx := context.Background()

	require.NoError(t, a.Deliver(ctx, model.Accept{IncidentID: 4, ProviderID: "A1"}))
	require.NoError(t, a.Deliver(ctx, model.Destination{IncidentID: 4, AmbulanceID: "A1", HospitalID: "H1"}))
	waitPending(t, sched, 2)

	require.NoError(t, a.Deliver(ctx, model.Cancel{IncidentID: 4, ProviderID: "A1"}))
	waitPending(t, sched, 0)
	sched.Advance(time.Minute)
	assert.Empty(t, coord.completions)
}

func TestAmbulanceReserveRelease(t *testing.T) {
	st, err := Spec{ID: "A1", Kind: "ambulance"}.State()
	require.NoError(t, err)
	a := NewActor(st, newRecordingCoordinator())
	ctx := context.Background()

	require.NoError(t, a.Reserve(ctx, directory.Reservation{IncidentID: 1}))
	require.NoError(t, a.Reserve(ctx, directory.Reservation{IncidentID: 1}))
	assert.False(t, a.Snapshot().Available)

	err = a.Reserve(ctx, directory.Reservation{IncidentID: 2})
	assert.True(t, errors.Is(err, directory.ErrUnavailable))

	assert.True(t, errors.Is(a.Release(ctx, 2), directory.ErrNotHeld))
	require.NoError(t, a.Release(ctx, 1))
	assert.True(t, a.Snapshot().Available)
}

func TestHospitalNeverExceedsCapacity(t *testing.T) {
	st, err := Spec{ID: "H1", Kind: "hospital", Tier: "regional", Capacity: 2}.State()
	require.NoError(t, err)
	a := NewActor(st, newRecordingCoordinator())
	ctx := context.Background()

	require.NoError(t, a.Reserve(ctx, directory.Reservation{IncidentID: 1, Kind: model.KindCardiac}))
	require.NoError(t, a.Reserve(ctx, directory.Reservation{IncidentID: 2, Kind: model.KindCardiac}))
	err = a.Reserve(ctx, directory.Reservation{IncidentID: 3})
	assert.True(t, errors.Is(err, directory.ErrUnavailable))

	snap := a.Snapshot()
	assert.Equal(t, 2, snap.Load)
	assert.False(t, snap.CanServe())
	assert.False(t, snap.Specialists[0].Available, "cardiology busy")

	require.NoError(t, a.Release(ctx, 1))
	snap = a.Snapshot()
	assert.Equal(t, 1, snap.Load)
	assert.True(t, snap.Specialists[0].Available)
}

func TestDeliverAfterStop(t *testing.T) {
	st, err := Spec{ID: "A1", Kind: "ambulance"}.State()
	require.NoError(t, err)
	a := NewActor(st, newRecordingCoordinator())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Run(ctx)
	assert.ErrorIs(t, a.Deliver(context.Background(), model.Reject{}), ErrStopped)
}

func TestFleetRegistersActors(t *testing.T) {
	specs := []Spec{
		{ID: "A1", Kind: "ambulance"},
		{ID: "H1", Kind: "hospital"},
	}
	tr := NewLocalTransport()
	f, err := NewFleet(specs, newRecordingCoordinator(), tr, nil)
	require.NoError(t, err)
	dir := directory.NewMemory()
	require.NoError(t, f.Register(context.Background(), dir))
	assert.Len(t, dir.FindProviders(context.Background(), model.Hospital), 1)
	assert.Len(t, f.Snapshot(), 2)

	_, err = NewFleet(append(specs, Spec{ID: "A1", Kind: "ambulance"}), nil, nil, nil)
	assert.ErrorIs(t, err, directory.ErrDuplicateProvider)

	assert.Error(t, tr.SendCFP(context.Background(), "ghost", model.CallForProposal{}))
}
