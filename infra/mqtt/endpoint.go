package mqtt

import (
	"context"
	"encoding/json"

	"github.com/kilianp07/emsdispatch/core/directory"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/core/provider"
	"github.com/kilianp07/emsdispatch/infra/logger"
)

// RemoteCoordinator is the upstream of a provider actor running in another
// process. It publishes replies to the coordinator inbox.
type RemoteCoordinator struct {
	client     *PahoClient
	providerID string
}

// NewRemoteCoordinator returns the upstream for the given provider.
func NewRemoteCoordinator(client *PahoClient, providerID string) *RemoteCoordinator {
	return &RemoteCoordinator{client: client, providerID: providerID}
}

func (r *RemoteCoordinator) send(typ string, payload any) error {
	env, err := NewEnvelope(typ, payload)
	if err != nil {
		return err
	}
	return r.client.PublishJSON(r.client.Topics().Coordinator(), "message", false, env)
}

func (r *RemoteCoordinator) ReceiveProposal(_ context.Context, p model.Proposal) error {
	return r.send(TypeProposal, p)
}

func (r *RemoteCoordinator) ReceiveRefusal(_ context.Context, ref model.Refusal) error {
	return r.send(TypeRefusal, ref)
}

func (r *RemoteCoordinator) CompleteIncident(_ context.Context, incidentID uint64, responseSeconds float64) error {
	return r.send(TypeCompletion, model.Completion{IncidentID: incidentID, AmbulanceID: r.providerID, ResponseSeconds: responseSeconds})
}

// Endpoint exposes a local actor on MQTT: it announces the provider, feeds its
// inbox and answers reservation requests.
type Endpoint struct {
	client *PahoClient
	actor  *provider.Actor
	log    logger.Logger
}

// NewEndpoint binds actor to client.
func NewEndpoint(client *PahoClient, actor *provider.Actor) *Endpoint {
	return &Endpoint{client: client, actor: actor, log: logger.New("mqtt_endpoint")}
}

// Start subscribes to the provider inbox and publishes the retained announcement.
func (e *Endpoint) Start(ctx context.Context) error {
	topics := e.client.Topics()
	if err := e.client.Subscribe(topics.ProviderInbox(e.actor.ID()), "message", func(_ string, payload []byte) {
		e.handle(ctx, payload)
	}); err != nil {
		return err
	}
	st := e.actor.Snapshot()
	a := Announcement{ID: st.ID, Kind: st.Kind, Tier: st.Tier, Location: st.Location}
	return e.client.PublishJSON(topics.Announce(st.ID), "announce", true, a)
}

// Stop clears the retained announcement so the provider is withdrawn.
func (e *Endpoint) Stop() error {
	return e.client.Publish(e.client.Topics().Announce(e.actor.ID()), "announce", true, nil)
}

func (e *Endpoint) handle(ctx context.Context, payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		e.log.Errorf("%s: decode envelope: %v", e.actor.ID(), err)
		return
	}
	var msg any
	var err error
	switch env.Type {
	case TypeCFP:
		var m model.CallForProposal
		err, msg = env.Decode(&m), m
	case TypeAccept:
		var m model.Accept
		err, msg = env.Decode(&m), m
	case TypeReject:
		var m model.Reject
		err, msg = env.Decode(&m), m
	case TypeDestination:
		var m model.Destination
		err, msg = env.Decode(&m), m
	case TypeCancel:
		var m model.Cancel
		err, msg = env.Decode(&m), m
	case TypeReserve, TypeRelease:
		e.serveRequest(ctx, env)
		return
	default:
		e.log.Warnf("%s: unexpected message type %q", e.actor.ID(), env.Type)
		return
	}
	if err != nil {
		e.log.Errorf("%s: decode %s: %v", e.actor.ID(), env.Type, err)
		return
	}
	if err := e.actor.Deliver(ctx, msg); err != nil {
		e.log.Warnf("%s: deliver %s: %v", e.actor.ID(), env.Type, err)
	}
}

func (e *Endpoint) serveRequest(ctx context.Context, env Envelope) {
	var err error
	if env.Type == TypeReserve {
		var r directory.Reservation
		if err = env.Decode(&r); err == nil {
			err = e.actor.Reserve(ctx, r)
		}
	} else {
		var r releaseRequest
		if err = env.Decode(&r); err == nil {
			err = e.actor.Release(ctx, r.IncidentID)
		}
	}
	if rerr := e.client.Reply(env, replyFor(err)); rerr != nil {
		e.log.Errorf("%s: reply to %s: %v", e.actor.ID(), env.ID, rerr)
	}
}
