package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremon "github.com/kilianp07/emsdispatch/core/monitoring"
	"github.com/kilianp07/emsdispatch/infra/logger"
)

// ErrReplyTimeout is returned when no reply arrives before the request timeout.
var ErrReplyTimeout = errors.New("timeout waiting for reply")

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker           string          `json:"broker"`
	ClientID         string          `json:"client_id"`
	Username         string          `json:"username"`
	Password         string          `json:"password"`
	TopicPrefix      string          `json:"topic_prefix"`
	UseTLS           bool            `json:"use_tls"`
	ClientCert       string          `json:"client_cert"`
	ClientKey        string          `json:"client_key"`
	CABundle         string          `json:"ca_bundle"`
	AuthMethod       string          `json:"auth_method"`
	QoS              map[string]byte `json:"qos"`
	LWTTopic         string          `json:"lwt_topic"`
	LWTPayload       string          `json:"lwt_payload"`
	LWTQoS           byte            `json:"lwt_qos"`
	LWTRetain        bool            `json:"lwt_retain"`
	MaxRetries       int             `json:"max_retries"`
	BackoffMS        int             `json:"backoff_ms"`
	RequestTimeoutMS int             `json:"request_timeout_ms"`
	TLSConfig        *tls.Config     `json:"-"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "emsdispatch-" + uuid.NewString()[:8]
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "ems"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
	if c.RequestTimeoutMS == 0 {
		c.RequestTimeoutMS = 2000
	}
}

// Validate checks the connection settings.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	for k, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("mqtt qos %s must be 0, 1 or 2", k)
		}
	}
	return nil
}

// Handler processes a message received on a subscribed topic.
type Handler func(topic string, payload []byte)

// pahoClient is the subset of paho.Client used here.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

type subscription struct {
	qos     byte
	handler Handler
}

// PahoClient publishes JSON envelopes and correlates request replies over Eclipse Paho.
type PahoClient struct {
	cli    pahoClient
	topics Topics
	qos    map[string]byte

	mu         sync.Mutex
	subs       map[string]subscription
	pending    map[string]chan Envelope
	replyTopic string
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to its reply topic.
// Subscriptions are restored on every reconnect.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	logger := logger.New("mqtt_client")
	topics := Topics{Prefix: cfg.TopicPrefix}
	pc := &PahoClient{
		topics:     topics,
		qos:        cfg.QoS,
		subs:       make(map[string]subscription),
		pending:    make(map[string]chan Envelope),
		replyTopic: topics.Replies(cfg.ClientID),
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		timeout:    time.Duration(cfg.RequestTimeoutMS) * time.Millisecond,
	}
	pc.subs[pc.replyTopic] = subscription{qos: pc.qosFor("reply"), handler: pc.onReply}

	opts.OnConnect = func(c paho.Client) {
		logger.Infof("MQTT connected")
		pc.mu.Lock()
		subs := make(map[string]subscription, len(pc.subs))
		for k, v := range pc.subs {
			subs[k] = v
		}
		pc.mu.Unlock()
		for topic, s := range subs {
			if token := c.Subscribe(topic, s.qos, wrap(s.handler)); token.Wait() && token.Error() != nil {
				logger.Errorf("subscribe %s error: %v", topic, token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		logger.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	pc.cli = c
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	// Handlers issue requests and wait for replies on the same connection.
	opts.SetOrderMatters(false)
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func wrap(h Handler) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) { h(msg.Topic(), msg.Payload()) }
}

// Topics returns the topic layout used by this client.
func (p *PahoClient) Topics() Topics { return p.topics }

func (p *PahoClient) qosFor(key string) byte {
	if q, ok := p.qos[key]; ok {
		return q
	}
	return 0
}

// Subscribe registers a handler for the topic filter. The subscription is
// restored automatically after a reconnect.
func (p *PahoClient) Subscribe(topic, qosKey string, h Handler) error {
	s := subscription{qos: p.qosFor(qosKey), handler: h}
	p.mu.Lock()
	p.subs[topic] = s
	p.mu.Unlock()
	if !p.cli.IsConnected() {
		return nil
	}
	token := p.cli.Subscribe(topic, s.qos, wrap(h))
	token.Wait()
	return token.Error()
}

// Publish sends a raw payload with retries and exponential backoff.
func (p *PahoClient) Publish(topic, qosKey string, retained bool, payload []byte) error {
	qos := p.qosFor(qosKey)
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	coremon.CaptureException(publishErr, map[string]string{"module": "mqtt", "topic": topic})
	return publishErr
}

// PublishJSON encodes v as JSON and publishes it.
func (p *PahoClient) PublishJSON(topic, qosKey string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Publish(topic, qosKey, retained, payload)
}

// Request publishes env to topic and waits for the correlated reply.
func (p *PahoClient) Request(ctx context.Context, topic string, env Envelope) (Envelope, error) {
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	env.ReplyTo = p.replyTopic
	ch := make(chan Envelope, 1)
	p.mu.Lock()
	p.pending[env.ID] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, env.ID)
		p.mu.Unlock()
	}()

	if err := p.PublishJSON(topic, "message", false, env); err != nil {
		return Envelope{}, err
	}
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case reply := <-ch:
		return reply, nil
	case <-timer.C:
		return Envelope{}, fmt.Errorf("%w: %s %s", ErrReplyTimeout, env.Type, env.ID)
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

// Reply answers a request envelope.
func (p *PahoClient) Reply(req Envelope, reply Envelope) error {
	if req.ReplyTo == "" {
		return fmt.Errorf("request %s has no reply topic", req.ID)
	}
	reply.Type = TypeReply
	reply.CorrelationID = req.ID
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	return p.PublishJSON(req.ReplyTo, "reply", false, reply)
}

func (p *PahoClient) onReply(_ string, payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		p.logger.Errorf("failed to decode reply: %v", err)
		return
	}
	p.mu.Lock()
	ch, ok := p.pending[env.CorrelationID]
	p.mu.Unlock()
	if !ok {
		p.logger.Debugf("late reply %s dropped", env.CorrelationID)
		return
	}
	select {
	case ch <- env:
	default:
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
