package coordinator

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// maxSamples bounds the response time window used for statistics.
const maxSamples = 10000

// Stats summarises coordinator activity.
type Stats struct {
	Submitted           int     `json:"submitted"`
	Open                int     `json:"open"`
	Completed           int     `json:"completed"`
	Cancelled           int     `json:"cancelled"`
	Stalled             int     `json:"stalled"`
	MeanResponseSeconds float64 `json:"mean_response_seconds"`
	P50ResponseSeconds  float64 `json:"p50_response_seconds"`
	P90ResponseSeconds  float64 `json:"p90_response_seconds"`
}

type tracker struct {
	mu        sync.Mutex
	submitted int
	completed int
	cancelled int
	responses []float64
}

func (t *tracker) submit() {
	t.mu.Lock()
	t.submitted++
	t.mu.Unlock()
}

func (t *tracker) cancel() {
	t.mu.Lock()
	t.cancelled++
	t.mu.Unlock()
}

func (t *tracker) complete(secs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed++
	t.responses = append(t.responses, secs)
	if len(t.responses) > maxSamples {
		t.responses = t.responses[len(t.responses)-maxSamples:]
	}
}

func (t *tracker) snapshot() Stats {
	t.mu.Lock()
	s := Stats{
		Submitted: t.submitted,
		Completed: t.completed,
		Cancelled: t.cancelled,
	}
	xs := append([]float64(nil), t.responses...)
	t.mu.Unlock()

	s.Open = s.Submitted - s.Completed - s.Cancelled
	if len(xs) == 0 {
		return s
	}
	sort.Float64s(xs)
	s.MeanResponseSeconds = stat.Mean(xs, nil)
	s.P50ResponseSeconds = stat.Quantile(0.5, stat.Empirical, xs, nil)
	s.P90ResponseSeconds = stat.Quantile(0.9, stat.Empirical, xs, nil)
	return s
}
