package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kilianp07/emsdispatch/core/directory"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/infra/logger"
)

// Reply codes mapped back to directory errors.
const (
	codeUnavailable = "unavailable"
	codeNotHeld     = "not_held"
)

// Directory tracks providers from their retained announcements. Reserve and
// Release on the returned handles are request/reply exchanges with the provider.
type Directory struct {
	client *PahoClient
	mem    *directory.Memory
	log    logger.Logger
}

// NewDirectory creates an empty directory. Call Start to begin tracking.
func NewDirectory(client *PahoClient) *Directory {
	return &Directory{client: client, mem: directory.NewMemory(), log: logger.New("mqtt_directory")}
}

// OnRegister adds a listener invoked for every newly announced provider.
func (d *Directory) OnRegister(l directory.RegistrationListener) { d.mem.OnRegister(l) }

// Start subscribes to provider announcements.
func (d *Directory) Start(ctx context.Context) error {
	return d.client.Subscribe(d.client.Topics().AnnounceAll(), "announce", func(topic string, payload []byte) {
		d.handle(ctx, topic, payload)
	})
}

func (d *Directory) handle(ctx context.Context, topic string, payload []byte) {
	id := d.client.Topics().ProviderFromTopic(topic)
	if id == "" {
		return
	}
	if len(payload) == 0 {
		d.mem.Deregister(id)
		d.log.Infof("provider %s withdrew", id)
		return
	}
	var a Announcement
	if err := json.Unmarshal(payload, &a); err != nil {
		d.log.Errorf("decode announcement for %s: %v", id, err)
		return
	}
	if a.ID != id {
		d.log.Warnf("announcement on %s names %s", topic, a.ID)
		return
	}
	if _, ok := d.mem.Lookup(id); ok {
		return
	}
	h := &remoteHandle{id: a.ID, kind: a.Kind, client: d.client}
	if err := d.mem.Register(ctx, h); err != nil && !errors.Is(err, directory.ErrDuplicateProvider) {
		d.log.Errorf("register %s: %v", id, err)
		return
	}
	d.log.Infof("provider %s (%s %s) announced at %s", a.ID, a.Tier, a.Kind, a.Location)
}

func (d *Directory) FindProviders(ctx context.Context, kind model.ProviderKind) []directory.Handle {
	return d.mem.FindProviders(ctx, kind)
}

func (d *Directory) Lookup(id string) (directory.Handle, bool) { return d.mem.Lookup(id) }

// Len returns the number of known providers.
func (d *Directory) Len() int { return d.mem.Len() }

type releaseRequest struct {
	IncidentID uint64 `json:"incident_id"`
}

type remoteHandle struct {
	id     string
	kind   model.ProviderKind
	client *PahoClient
}

func (h *remoteHandle) ID() string               { return h.id }
func (h *remoteHandle) Kind() model.ProviderKind { return h.kind }

func (h *remoteHandle) Reserve(ctx context.Context, r directory.Reservation) error {
	return h.request(ctx, TypeReserve, r)
}

func (h *remoteHandle) Release(ctx context.Context, incidentID uint64) error {
	return h.request(ctx, TypeRelease, releaseRequest{IncidentID: incidentID})
}

func (h *remoteHandle) request(ctx context.Context, typ string, payload any) error {
	env, err := NewEnvelope(typ, payload)
	if err != nil {
		return err
	}
	reply, err := h.client.Request(ctx, h.client.Topics().ProviderInbox(h.id), env)
	if err != nil {
		return fmt.Errorf("%s %s: %w", typ, h.id, err)
	}
	return replyError(reply)
}

func replyError(reply Envelope) error {
	if reply.Error == "" {
		return nil
	}
	switch reply.Code {
	case codeUnavailable:
		return fmt.Errorf("%w: %s", directory.ErrUnavailable, reply.Error)
	case codeNotHeld:
		return fmt.Errorf("%w: %s", directory.ErrNotHeld, reply.Error)
	default:
		return errors.New(reply.Error)
	}
}

func replyFor(err error) Envelope {
	if err == nil {
		return Envelope{}
	}
	out := Envelope{Error: err.Error()}
	switch {
	case errors.Is(err, directory.ErrUnavailable):
		out.Code = codeUnavailable
	case errors.Is(err, directory.ErrNotHeld):
		out.Code = codeNotHeld
	}
	return out
}
