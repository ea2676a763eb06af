package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kilianp07/emsdispatch/core/events"
	"github.com/kilianp07/emsdispatch/core/gateway/mocks"
	"github.com/kilianp07/emsdispatch/core/logger"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/internal/eventbus"
)

func TestBusGatewayPublishesEvents(t *testing.T) {
	bus := eventbus.New[events.Event]()
	ch := bus.Subscribe()
	g := NewBus(bus)
	ctx := context.Background()

	g.RequestRoutePriority(ctx, "L1", time.Minute)
	g.BroadcastTrafficHold(ctx, "L1")
	g.NotifyDestination(ctx, model.DestinationNotice{IncidentID: 1, AmbulanceID: "A1", HospitalID: "H1"})
	g.ClearRoutePriority(ctx, "L1")
	g.BroadcastTrafficResume(ctx, "L1")
	g.Emit(ctx, events.IncidentStalled{IncidentID: 1})

	var names []string
	for i := 0; i < 6; i++ {
		select {
		case e := <-ch:
			names = append(names, e.Name())
		case <-time.After(time.Second):
			t.Fatal("missing event")
		}
	}
	assert.Equal(t, []string{
		"route_priority_requested", "traffic_hold", "destination_notified",
		"route_priority_cleared", "traffic_resume", "incident_stalled",
	}, names)
}

func TestMultiForwardsToAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mocks.NewMockGateway(ctrl)
	b := mocks.NewMockGateway(ctrl)
	ctx := context.Background()

	gomock.InOrder(
		a.EXPECT().RequestRoutePriority(ctx, model.Location("L1"), 5*time.Minute).Times(1),
		b.EXPECT().RequestRoutePriority(ctx, model.Location("L1"), 5*time.Minute).Times(1),
	)
	a.EXPECT().Emit(ctx, gomock.Any()).Times(1)
	b.EXPECT().Emit(ctx, gomock.Any()).Times(1)

	m := Multi{a, b}
	m.RequestRoutePriority(ctx, "L1", 5*time.Minute)
	m.Emit(ctx, events.TrafficHold{Location: "L1"})
}

func TestNopAndLogDoNotPanic(t *testing.T) {
	ctx := context.Background()
	for _, g := range []Gateway{Nop{}, NewLog(logger.Nop{})} {
		require.NotPanics(t, func() {
			g.RequestRoutePriority(ctx, "L", time.Second)
			g.ClearRoutePriority(ctx, "L")
			g.NotifyDestination(ctx, model.DestinationNotice{})
			g.BroadcastTrafficHold(ctx, "L")
			g.BroadcastTrafficResume(ctx, "L")
			g.Emit(ctx, events.TrafficResume{})
		})
	}
}
