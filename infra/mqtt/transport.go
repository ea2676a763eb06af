package mqtt

import (
	"context"
	"fmt"

	"github.com/kilianp07/emsdispatch/core/model"
)

// Transport delivers coordinator messages to provider inboxes.
type Transport struct {
	client *PahoClient
}

// NewTransport returns a coordinator transport publishing through client.
func NewTransport(client *PahoClient) *Transport {
	return &Transport{client: client}
}

func (t *Transport) send(ctx context.Context, providerID, typ string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if providerID == "" {
		return fmt.Errorf("%s: empty provider id", typ)
	}
	env, err := NewEnvelope(typ, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", typ, err)
	}
	return t.client.PublishJSON(t.client.Topics().ProviderInbox(providerID), "message", false, env)
}

func (t *Transport) SendCFP(ctx context.Context, providerID string, cfp model.CallForProposal) error {
	return t.send(ctx, providerID, TypeCFP, cfp)
}

func (t *Transport) SendAccept(ctx context.Context, m model.Accept) error {
	return t.send(ctx, m.ProviderID, TypeAccept, m)
}

func (t *Transport) SendReject(ctx context.Context, m model.Reject) error {
	return t.send(ctx, m.ProviderID, TypeReject, m)
}

func (t *Transport) SendDestination(ctx context.Context, m model.Destination) error {
	return t.send(ctx, m.AmbulanceID, TypeDestination, m)
}

func (t *Transport) SendCancel(ctx context.Context, m model.Cancel) error {
	return t.send(ctx, m.ProviderID, TypeCancel, m)
}
