// Package gateway defines the side-effect sink the coordinator drives:
// route priority, traffic broadcasts, destination hand-off and dashboard events.
// Every call is fire-and-forget; implementations must not block for long.
package gateway

//go:generate mockgen -source=gateway.go -destination=mocks/gateway_mock.go -package=mocks

import (
	"context"
	"time"

	"github.com/kilianp07/emsdispatch/core/events"
	"github.com/kilianp07/emsdispatch/core/logger"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/internal/eventbus"
)

// Gateway receives the coordinator's side effects.
type Gateway interface {
	RequestRoutePriority(ctx context.Context, loc model.Location, d time.Duration)
	ClearRoutePriority(ctx context.Context, loc model.Location)
	NotifyDestination(ctx context.Context, n model.DestinationNotice)
	BroadcastTrafficHold(ctx context.Context, loc model.Location)
	BroadcastTrafficResume(ctx context.Context, loc model.Location)
	Emit(ctx context.Context, e events.Event)
}

// Nop discards every call.
type Nop struct{}

func (Nop) RequestRoutePriority(context.Context, model.Location, time.Duration) {}
func (Nop) ClearRoutePriority(context.Context, model.Location)                  {}
func (Nop) NotifyDestination(context.Context, model.DestinationNotice)          {}
func (Nop) BroadcastTrafficHold(context.Context, model.Location)                {}
func (Nop) BroadcastTrafficResume(context.Context, model.Location)              {}
func (Nop) Emit(context.Context, events.Event)                                  {}

// Multi fans out every call to each gateway in order.
type Multi []Gateway

func (m Multi) RequestRoutePriority(ctx context.Context, loc model.Location, d time.Duration) {
	for _, g := range m {
		g.RequestRoutePriority(ctx, loc, d)
	}
}

func (m Multi) ClearRoutePriority(ctx context.Context, loc model.Location) {
	for _, g := range m {
		g.ClearRoutePriority(ctx, loc)
	}
}

func (m Multi) NotifyDestination(ctx context.Context, n model.DestinationNotice) {
	for _, g := range m {
		g.NotifyDestination(ctx, n)
	}
}

func (m Multi) BroadcastTrafficHold(ctx context.Context, loc model.Location) {
	for _, g := range m {
		g.BroadcastTrafficHold(ctx, loc)
	}
}

func (m Multi) BroadcastTrafficResume(ctx context.Context, loc model.Location) {
	for _, g := range m {
		g.BroadcastTrafficResume(ctx, loc)
	}
}

func (m Multi) Emit(ctx context.Context, e events.Event) {
	for _, g := range m {
		g.Emit(ctx, e)
	}
}

// Bus publishes every call as a typed event.
type Bus struct {
	bus eventbus.EventBus[events.Event]
}

// NewBus returns a gateway publishing onto b.
func NewBus(b eventbus.EventBus[events.Event]) *Bus { return &Bus{bus: b} }

func (g *Bus) RequestRoutePriority(_ context.Context, loc model.Location, d time.Duration) {
	g.bus.Publish(events.RoutePriorityRequested{Location: loc, Duration: d})
}

func (g *Bus) ClearRoutePriority(_ context.Context, loc model.Location) {
	g.bus.Publish(events.RoutePriorityCleared{Location: loc})
}

func (g *Bus) NotifyDestination(_ context.Context, n model.DestinationNotice) {
	g.bus.Publish(events.DestinationNotified{Notice: n})
}

func (g *Bus) BroadcastTrafficHold(_ context.Context, loc model.Location) {
	g.bus.Publish(events.TrafficHold{Location: loc})
}

func (g *Bus) BroadcastTrafficResume(_ context.Context, loc model.Location) {
	g.bus.Publish(events.TrafficResume{Location: loc})
}

func (g *Bus) Emit(_ context.Context, e events.Event) { g.bus.Publish(e) }

// Log writes every call to a logger.
type Log struct {
	log logger.Logger
}

// NewLog returns a logging gateway.
func NewLog(l logger.Logger) *Log { return &Log{log: l} }

func (g *Log) RequestRoutePriority(_ context.Context, loc model.Location, d time.Duration) {
	g.log.Infof("route priority requested at %s for %s", loc, d)
}

func (g *Log) ClearRoutePriority(_ context.Context, loc model.Location) {
	g.log.Infof("route priority cleared at %s", loc)
}

func (g *Log) NotifyDestination(_ context.Context, n model.DestinationNotice) {
	g.log.Infof("incident %d: ambulance %s heading to %s", n.IncidentID, n.AmbulanceID, n.HospitalID)
}

func (g *Log) BroadcastTrafficHold(_ context.Context, loc model.Location) {
	g.log.Infof("traffic hold at %s", loc)
}

func (g *Log) BroadcastTrafficResume(_ context.Context, loc model.Location) {
	g.log.Infof("traffic resume at %s", loc)
}

func (g *Log) Emit(_ context.Context, e events.Event) {
	g.log.Debugw(e.Name(), map[string]any{"event": e})
}
