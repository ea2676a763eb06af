package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/emsdispatch/core/model"
)

// Message types carried in envelopes.
const (
	TypeCFP         = "cfp"
	TypeAccept      = "accept"
	TypeReject      = "reject"
	TypeDestination = "destination"
	TypeCancel      = "cancel"
	TypeReserve     = "reserve"
	TypeRelease     = "release"
	TypeProposal    = "proposal"
	TypeRefusal     = "refusal"
	TypeCompletion  = "completion"
	TypeReply       = "reply"
)

// Topics builds topic names under a common prefix.
//
//	<prefix>/providers/<id>/announce   retained provider announcements
//	<prefix>/providers/<id>/inbox      coordinator to provider
//	<prefix>/coordinator/inbox         provider to coordinator
//	<prefix>/replies/<client id>       request replies
//	<prefix>/gateway/<action>          traffic control and hospital hand-off
//	<prefix>/events/<name>             dashboard events
type Topics struct {
	Prefix string
}

func (t Topics) join(parts ...string) string {
	return strings.Join(append([]string{t.Prefix}, parts...), "/")
}

func (t Topics) Announce(providerID string) string      { return t.join("providers", providerID, "announce") }
func (t Topics) AnnounceAll() string                    { return t.join("providers", "+", "announce") }
func (t Topics) ProviderInbox(providerID string) string { return t.join("providers", providerID, "inbox") }
func (t Topics) Coordinator() string                    { return t.join("coordinator", "inbox") }
func (t Topics) Replies(clientID string) string         { return t.join("replies", clientID) }
func (t Topics) Gateway(action string) string           { return t.join("gateway", action) }
func (t Topics) Event(name string) string               { return t.join("events", name) }

// ProviderFromTopic extracts the provider id from a providers/<id>/... topic.
func (t Topics) ProviderFromTopic(topic string) string {
	rest := strings.TrimPrefix(topic, t.Prefix+"/providers/")
	if rest == topic {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}

// Envelope wraps every message exchanged over MQTT.
type Envelope struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ReplyTo       string          `json:"reply_to,omitempty"`
	Code          string          `json:"code,omitempty"`
	Error         string          `json:"error,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	SentAt        time.Time       `json:"sent_at"`
}

// NewEnvelope encodes payload into a fresh envelope.
func NewEnvelope(typ string, payload any) (Envelope, error) {
	env := Envelope{ID: uuid.NewString(), Type: typ, SentAt: time.Now().UTC()}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, err
		}
		env.Payload = b
	}
	return env, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Announcement is the retained presence message of a provider.
type Announcement struct {
	ID       string             `json:"id"`
	Kind     model.ProviderKind `json:"kind"`
	Tier     string             `json:"tier,omitempty"`
	Location model.Location     `json:"location"`
}
