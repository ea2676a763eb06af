package mqtt

import (
	"context"
	"time"

	"github.com/kilianp07/emsdispatch/core/events"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/infra/logger"
)

// Gateway publishes coordinator side effects for traffic control, hospitals and dashboards.
type Gateway struct {
	client *PahoClient
	log    logger.Logger
}

// NewGateway returns a gateway publishing through client.
func NewGateway(client *PahoClient) *Gateway {
	return &Gateway{client: client, log: logger.New("mqtt_gateway")}
}

type locationNotice struct {
	Location model.Location `json:"location"`
	Time     time.Time      `json:"time"`
}

type eventNotice struct {
	Event string    `json:"event"`
	Time  time.Time `json:"time"`
	Data  any       `json:"data"`
}

func (g *Gateway) publish(topic string, v any) {
	if err := g.client.PublishJSON(topic, "gateway", false, v); err != nil {
		g.log.Errorf("gateway publish %s: %v", topic, err)
	}
}

func (g *Gateway) RequestRoutePriority(_ context.Context, loc model.Location, d time.Duration) {
	g.publish(g.client.Topics().Gateway("route_priority"), model.RoutePriorityRequest{Location: loc, Duration: d})
}

func (g *Gateway) ClearRoutePriority(_ context.Context, loc model.Location) {
	g.publish(g.client.Topics().Gateway("route_priority_clear"), locationNotice{Location: loc, Time: time.Now().UTC()})
}

func (g *Gateway) NotifyDestination(_ context.Context, n model.DestinationNotice) {
	g.publish(g.client.Topics().Gateway("destination"), n)
}

func (g *Gateway) BroadcastTrafficHold(_ context.Context, loc model.Location) {
	g.publish(g.client.Topics().Gateway("traffic_hold"), locationNotice{Location: loc, Time: time.Now().UTC()})
}

func (g *Gateway) BroadcastTrafficResume(_ context.Context, loc model.Location) {
	g.publish(g.client.Topics().Gateway("traffic_resume"), locationNotice{Location: loc, Time: time.Now().UTC()})
}

// Emit publishes a dashboard event under events/<name>.
func (g *Gateway) Emit(_ context.Context, e events.Event) {
	var data any = e
	if v, ok := e.(events.InvariantViolated); ok {
		data = map[string]any{"incident_id": v.IncidentID, "error": v.Err.Error()}
	}
	g.publish(g.client.Topics().Event(e.Name()), eventNotice{Event: e.Name(), Time: time.Now().UTC(), Data: data})
}
