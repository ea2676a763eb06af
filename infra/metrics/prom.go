package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/emsdispatch/core/metrics"
)

// PromSink records allocation events in Prometheus metrics.
type PromSink struct {
	allocations *prometheus.CounterVec
	scores      *prometheus.HistogramVec
	latency     *prometheus.HistogramVec
	proposals   *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	stalls      *prometheus.CounterVec
	gateway     *prometheus.CounterVec
}

// NewPromSink registers allocation metrics on the default Prometheus registerer.
// The HTTP endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered under the same name are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.allocations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ems_allocation_events_total",
		Help: "Providers assigned per phase and incident kind",
	}, []string{"phase", "provider_id", "kind"})); err != nil {
		return nil, err
	}
	if s.scores, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ems_allocation_winning_score",
		Help:    "Score of the winning proposal",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	}, []string{"phase"})); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ems_allocation_latency_seconds",
		Help:    "Time between call for proposals and assignment",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase", "severity"})); err != nil {
		return nil, err
	}
	if s.proposals, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ems_proposal_events_total",
		Help: "Proposals seen by the coordinator per provider and outcome",
	}, []string{"phase", "provider_id", "result"})); err != nil {
		return nil, err
	}
	if s.outcomes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ems_incident_outcomes_total",
		Help: "Closed incidents per final state and kind",
	}, []string{"state", "kind"})); err != nil {
		return nil, err
	}
	if s.stalls, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ems_stall_events_total",
		Help: "Phases stalled per reason",
	}, []string{"phase", "reason"})); err != nil {
		return nil, err
	}
	if s.gateway, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ems_gateway_actions_total",
		Help: "Traffic control and hospital hand-off actions",
	}, []string{"action"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// RecordAllocation counts the assignment and observes its score and latency.
func (s *PromSink) RecordAllocation(ev coremetrics.AllocationEvent) error {
	phase := string(ev.Phase)
	s.allocations.WithLabelValues(phase, ev.ProviderID, ev.Kind.String()).Inc()
	s.scores.WithLabelValues(phase).Observe(float64(ev.Score))
	s.latency.WithLabelValues(phase, ev.Severity.String()).Observe(ev.Latency.Seconds())
	return nil
}

// RecordProposal counts proposal outcomes.
func (s *PromSink) RecordProposal(ev coremetrics.ProposalEvent) error {
	s.proposals.WithLabelValues(string(ev.Phase), ev.ProviderID, ev.Result).Inc()
	return nil
}

// RecordCompletion counts closed incidents.
func (s *PromSink) RecordCompletion(ev coremetrics.CompletionEvent) error {
	s.outcomes.WithLabelValues(stateLabel(ev.State), ev.Kind.String()).Inc()
	return nil
}

// RecordStall counts stalled phases.
func (s *PromSink) RecordStall(ev coremetrics.StallEvent) error {
	s.stalls.WithLabelValues(string(ev.Phase), ev.Reason).Inc()
	return nil
}

// RecordGatewayAction counts gateway actions.
func (s *PromSink) RecordGatewayAction(ev coremetrics.GatewayEvent) error {
	s.gateway.WithLabelValues(ev.Action).Inc()
	return nil
}
