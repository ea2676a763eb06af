package mqtt

import (
	"context"
	"encoding/json"

	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/core/provider"
	"github.com/kilianp07/emsdispatch/infra/logger"
)

// Listener feeds provider replies arriving on the coordinator inbox into the coordinator.
type Listener struct {
	client *PahoClient
	coord  provider.Coordinator
	log    logger.Logger
}

// NewListener creates a listener for coord.
func NewListener(client *PahoClient, coord provider.Coordinator) *Listener {
	return &Listener{client: client, coord: coord, log: logger.New("mqtt_listener")}
}

// Start subscribes to the coordinator inbox. Messages are dispatched with ctx.
func (l *Listener) Start(ctx context.Context) error {
	return l.client.Subscribe(l.client.Topics().Coordinator(), "message", func(_ string, payload []byte) {
		l.handle(ctx, payload)
	})
}

func (l *Listener) handle(ctx context.Context, payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		l.log.Errorf("decode envelope: %v", err)
		return
	}
	var err error
	switch env.Type {
	case TypeProposal:
		var p model.Proposal
		if err = env.Decode(&p); err == nil {
			err = l.coord.ReceiveProposal(ctx, p)
		}
	case TypeRefusal:
		var r model.Refusal
		if err = env.Decode(&r); err == nil {
			err = l.coord.ReceiveRefusal(ctx, r)
		}
	case TypeCompletion:
		var c model.Completion
		if err = env.Decode(&c); err == nil {
			err = l.coord.CompleteIncident(ctx, c.IncidentID, c.ResponseSeconds)
		}
	default:
		l.log.Warnf("unexpected message type %q on coordinator inbox", env.Type)
		return
	}
	if err != nil {
		l.log.Debugf("%s %s not taken: %v", env.Type, env.ID, err)
	}
}
