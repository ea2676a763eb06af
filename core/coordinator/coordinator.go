// Package coordinator runs the two-phase allocation of incidents: an auction
// among ambulances followed by an auction among hospitals. Each incident is
// guarded by its own lock so unrelated incidents never block each other.
// Side effects (transport messages, gateway calls, events) are collected
// while the lock is held and issued after it is released.
package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kilianp07/emsdispatch/core/archive"
	"github.com/kilianp07/emsdispatch/core/directory"
	"github.com/kilianp07/emsdispatch/core/gateway"
	"github.com/kilianp07/emsdispatch/core/logger"
	"github.com/kilianp07/emsdispatch/core/metrics"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/core/monitoring"
	"github.com/kilianp07/emsdispatch/core/scheduler"
)

const tracerName = "github.com/kilianp07/emsdispatch/core/coordinator"

// ViolationHandler is called once for every incident aborted by an invariant violation.
type ViolationHandler func(incidentID uint64, err error)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default discards output.
func WithLogger(l logger.Logger) Option { return func(c *Coordinator) { c.log = l } }

// WithScheduler sets the clock used for bidding deadlines.
func WithScheduler(s scheduler.Scheduler) Option { return func(c *Coordinator) { c.sched = s } }

// WithArchive sets the store that receives closed incidents.
func WithArchive(s archive.Store) Option { return func(c *Coordinator) { c.store = s } }

// WithMonitor sets the error monitor notified of invariant violations.
func WithMonitor(m monitoring.Monitor) Option { return func(c *Coordinator) { c.mon = m } }

// WithMetricsSink sets the sink for allocation and completion metrics.
func WithMetricsSink(s metrics.MetricsSink) Option { return func(c *Coordinator) { c.sink = s } }

// WithViolationHandler sets the callback run for each aborted incident.
func WithViolationHandler(h ViolationHandler) Option {
	return func(c *Coordinator) { c.onViolation = h }
}

// Coordinator owns every in-flight incident.
type Coordinator struct {
	cfg         Config
	dir         directory.Directory
	tr          Transport
	gw          gateway.Gateway
	sched       scheduler.Scheduler
	log         logger.Logger
	mon         monitoring.Monitor
	store       archive.Store
	sink        metrics.MetricsSink
	onViolation ViolationHandler
	tracer      trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc

	nextID  atomic.Uint64
	mu      sync.RWMutex
	records map[uint64]*record
	closed  []uint64
	stats   tracker
}

// New creates a coordinator. A nil gateway discards side effects.
func New(cfg Config, dir directory.Directory, tr Transport, gw gateway.Gateway, opts ...Option) (*Coordinator, error) {
	if dir == nil || tr == nil {
		return nil, fmt.Errorf("coordinator: nil directory or transport")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("coordinator config: %w", err)
	}
	if gw == nil {
		gw = gateway.Nop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:     cfg,
		dir:     dir,
		tr:      tr,
		gw:      gw,
		sched:   scheduler.Real{},
		log:     logger.Nop{},
		mon:     monitoring.NopMonitor{},
		store:   archive.NopStore{},
		sink:    metrics.NopSink{},
		tracer:  otel.Tracer(tracerName),
		ctx:     ctx,
		cancel:  cancel,
		records: make(map[uint64]*record),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Coordinator) lookup(id uint64) *record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records[id]
}

// snapshotRecords returns the tracked records ordered by incident id.
func (c *Coordinator) snapshotRecords() []*record {
	c.mu.RLock()
	out := make([]*record, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].inc.ID < out[j].inc.ID })
	return out
}

// Incident returns a copy of the incident, if still tracked.
func (c *Coordinator) Incident(id uint64) (model.Incident, bool) {
	rec := c.lookup(id)
	if rec == nil {
		return model.Incident{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.inc.Clone(), true
}

// Incidents returns copies of every tracked incident ordered by id.
func (c *Coordinator) Incidents() []model.Incident {
	recs := c.snapshotRecords()
	out := make([]model.Incident, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		out = append(out, rec.inc.Clone())
		rec.mu.Unlock()
	}
	return out
}

// Stats returns counters and response time statistics.
func (c *Coordinator) Stats() Stats {
	s := c.stats.snapshot()
	for _, rec := range c.snapshotRecords() {
		rec.mu.Lock()
		if _, stalled := rec.stalledIn(); stalled {
			s.Stalled++
		}
		rec.mu.Unlock()
	}
	return s
}

// ProviderRegistered retries incidents stalled for lack of providers of kind.
func (c *Coordinator) ProviderRegistered(ctx context.Context, kind model.ProviderKind) {
	c.retryStalled(ctx, kind)
}

// Close stops every pending deadline. Incidents stay queryable.
func (c *Coordinator) Close() error {
	c.cancel()
	for _, rec := range c.snapshotRecords() {
		rec.mu.Lock()
		for _, ph := range rec.phases {
			ph.stopTimer()
		}
		rec.mu.Unlock()
	}
	return nil
}

func (c *Coordinator) startSpan(ctx context.Context, name string, id uint64) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "coordinator."+name, trace.WithAttributes(attribute.Int64("incident.id", int64(id))))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
