package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/emsdispatch/core/events"
	coremetrics "github.com/kilianp07/emsdispatch/core/metrics"
	"github.com/kilianp07/emsdispatch/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records gateway actions
// on sinks implementing GatewayRecorder. Allocation, proposal and completion
// events are recorded by the coordinator itself and are ignored here.
// It stops when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[events.Event], sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.GatewayRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if ge, ok := gatewayEvent(ev); ok {
					_ = rec.RecordGatewayAction(ge)
				}
			}
		}
	}()
}

func gatewayEvent(ev events.Event) (coremetrics.GatewayEvent, bool) {
	out := coremetrics.GatewayEvent{Action: ev.Name(), Time: time.Now()}
	switch e := ev.(type) {
	case events.RoutePriorityRequested:
		out.Location = e.Location
	case events.RoutePriorityCleared:
		out.Location = e.Location
	case events.TrafficHold:
		out.Location = e.Location
	case events.TrafficResume:
		out.Location = e.Location
	case events.DestinationNotified:
		out.IncidentID = e.Notice.IncidentID
	default:
		return out, false
	}
	return out, true
}
