// Package sim drives the coordinator with random incidents.
package sim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/emsdispatch/config"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/infra/logger"
)

// Submitter accepts new incidents.
type Submitter interface {
	Submit(ctx context.Context, kind model.Kind, sev model.Severity, loc model.Location) (uint64, error)
}

// Emergency is one generated incident.
type Emergency struct {
	Kind     model.Kind
	Severity model.Severity
	Location model.Location
}

// Generator periodically submits synthetic emergencies.
type Generator struct {
	cfg        config.SimulationConfig
	sub        Submitter
	log        logger.Logger
	rand       *rand.Rand
	kinds      []model.Kind
	severities []model.Severity
	sent       int

	mu  sync.Mutex
	ids []uint64
}

var (
	incidentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ems_generator_incidents_total",
		Help: "Incidents submitted by the generator",
	}, []string{"kind", "severity"})
	submitErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ems_generator_submit_errors_total",
		Help: "Errors while submitting generated incidents",
	})
	intervalHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ems_generator_interval_seconds",
		Help:    "Interval between generated incidents",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(incidentsTotal, submitErrors, intervalHist)
}

// New creates a Generator. Kinds and severities default to every value; the
// configuration is expected to be validated.
func New(cfg config.SimulationConfig, sub Submitter) *Generator {
	g := &Generator{
		cfg:  cfg,
		sub:  sub,
		log:  logger.New("generator"),
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
	for _, s := range cfg.Kinds {
		if k, err := model.ParseKind(s); err == nil {
			g.kinds = append(g.kinds, k)
		}
	}
	if len(g.kinds) == 0 {
		g.kinds = model.Kinds
	}
	for _, s := range cfg.Severities {
		if v, err := model.ParseSeverity(s); err == nil {
			g.severities = append(g.severities, v)
		}
	}
	if len(g.severities) == 0 {
		g.severities = model.Severities
	}
	return g
}

// Start submits incidents until ctx is canceled or Count incidents were sent.
// The first incident is submitted immediately.
func (g *Generator) Start(ctx context.Context) {
	var wait time.Duration
	for g.cfg.Count == 0 || g.sent < g.cfg.Count {
		if wait > 0 {
			intervalHist.Observe(wait.Seconds())
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}
		g.emit(ctx, g.Generate())
		wait = g.randomInterval()
	}
}

// Submitted returns the ids of the incidents accepted so far.
func (g *Generator) Submitted() []uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]uint64(nil), g.ids...)
}

// Generate draws the next emergency.
func (g *Generator) Generate() Emergency {
	return Emergency{
		Kind:     g.kinds[g.rand.Intn(len(g.kinds))],
		Severity: g.severities[g.rand.Intn(len(g.severities))],
		Location: model.Location(g.cfg.Locations[g.rand.Intn(len(g.cfg.Locations))]),
	}
}

func (g *Generator) emit(ctx context.Context, e Emergency) {
	g.sent++
	id, err := g.sub.Submit(ctx, e.Kind, e.Severity, e.Location)
	if err != nil {
		submitErrors.Inc()
		g.log.Errorf("submit %s %s at %s: %v", e.Severity, e.Kind, e.Location, err)
		return
	}
	g.mu.Lock()
	g.ids = append(g.ids, id)
	g.mu.Unlock()
	incidentsTotal.WithLabelValues(e.Kind.String(), e.Severity.String()).Inc()
	g.log.Infof("incident %d: %s %s at %s", id, e.Severity, e.Kind, e.Location)
}

func (g *Generator) randomInterval() time.Duration {
	min, max := g.cfg.MinInterval(), g.cfg.MaxInterval()
	if max <= min {
		return min
	}
	d := float64(min) + g.rand.Float64()*float64(max-min)
	d *= 1 + (g.rand.Float64()*2-1)*g.cfg.JitterPct
	if d < float64(min) {
		d = float64(min)
	}
	if d > float64(max) {
		d = float64(max)
	}
	return time.Duration(d)
}
