package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	incidentsSubmitted *prometheus.CounterVec
	proposalsTotal     *prometheus.CounterVec
	resolutionLatency  *prometheus.HistogramVec
	incidentsClosed    *prometheus.CounterVec
	responseSeconds    prometheus.Histogram
	openIncidents      prometheus.Gauge
	phasesStalled      *prometheus.CounterVec
	invariantFailures  prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.CounterVec, prometheus.Histogram, prometheus.Gauge, *prometheus.CounterVec, prometheus.Counter) {
	sub := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ems_incidents_submitted_total",
			Help: "Number of incidents submitted",
		},
		[]string{"kind", "severity"},
	)
	prop := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ems_proposals_total",
			Help: "Proposals received by phase and outcome",
		},
		[]string{"phase", "result"},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ems_phase_resolution_seconds",
			Help:    "Time from call for proposals to winner assignment",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
	closed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ems_incidents_closed_total",
			Help: "Closed incidents by final state",
		},
		[]string{"state"},
	)
	resp := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ems_response_time_seconds",
			Help:    "Response time reported on completion",
			Buckets: []float64{5, 10, 30, 60, 120, 300, 600, 1200},
		},
	)
	open := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ems_open_incidents",
			Help: "Incidents not yet completed or cancelled",
		},
	)
	stalled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ems_phases_stalled_total",
			Help: "Phases left waiting for an available provider",
		},
		[]string{"phase"},
	)
	inv := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ems_invariant_violations_total",
			Help: "Incidents aborted by an invariant violation",
		},
	)
	return sub, prop, lat, closed, resp, open, stalled, inv
}

func init() {
	incidentsSubmitted, proposalsTotal, resolutionLatency, incidentsClosed,
		responseSeconds, openIncidents, phasesStalled, invariantFailures = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers coordinator metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(incidentsSubmitted, proposalsTotal, resolutionLatency, incidentsClosed,
		responseSeconds, openIncidents, phasesStalled, invariantFailures)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	incidentsSubmitted, proposalsTotal, resolutionLatency, incidentsClosed,
		responseSeconds, openIncidents, phasesStalled, invariantFailures = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
