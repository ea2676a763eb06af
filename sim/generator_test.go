package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/emsdispatch/config"
	"github.com/kilianp07/emsdispatch/core/model"
)

type recSubmitter struct {
	mu   sync.Mutex
	got  []Emergency
	fail bool
}

func (r *recSubmitter) Submit(_ context.Context, k model.Kind, s model.Severity, l model.Location) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return 0, errors.New("down")
	}
	r.got = append(r.got, Emergency{Kind: k, Severity: s, Location: l})
	return uint64(len(r.got)), nil
}

func testConfig() config.SimulationConfig {
	cfg := config.SimulationConfig{Seed: 42, MinIntervalSeconds: 0.001, MaxIntervalSeconds: 0.002}
	cfg.SetDefaults()
	return cfg
}

func TestGeneratorDeterministic(t *testing.T) {
	cfg := testConfig()
	g1 := New(cfg, &recSubmitter{})
	g2 := New(cfg, &recSubmitter{})
	for i := 0; i < 20; i++ {
		assert.Equal(t, g1.Generate(), g2.Generate())
	}
}

func TestGeneratorRestrictsChoices(t *testing.T) {
	cfg := testConfig()
	cfg.Kinds = []string{"cardiac"}
	cfg.Severities = []string{"critical", "high"}
	cfg.Locations = []string{"Harbour"}
	g := New(cfg, &recSubmitter{})
	for i := 0; i < 50; i++ {
		e := g.Generate()
		assert.Equal(t, model.KindCardiac, e.Kind)
		assert.GreaterOrEqual(t, e.Severity, model.SeverityHigh)
		assert.Equal(t, model.Location("Harbour"), e.Location)
	}
}

func TestGeneratorIntervalBounds(t *testing.T) {
	cfg := testConfig()
	cfg.MinIntervalSeconds, cfg.MaxIntervalSeconds, cfg.JitterPct = 2, 4, 0.5
	g := New(cfg, &recSubmitter{})
	for i := 0; i < 100; i++ {
		d := g.randomInterval()
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.LessOrEqual(t, d, 4*time.Second)
	}
}

func TestGeneratorStopsAfterCount(t *testing.T) {
	cfg := testConfig()
	cfg.Count = 3
	sub := &recSubmitter{}
	g := New(cfg, sub)
	before := testutil.ToFloat64(submitErrors)

	done := make(chan struct{})
	go func() {
		g.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("generator did not stop")
	}
	require.Len(t, sub.got, 3)
	assert.Equal(t, []uint64{1, 2, 3}, g.Submitted())
	assert.Equal(t, before, testutil.ToFloat64(submitErrors))
}

func TestGeneratorCountsErrorsAndHonoursCancel(t *testing.T) {
	cfg := testConfig()
	cfg.MinIntervalSeconds, cfg.MaxIntervalSeconds = 60, 60
	g := New(cfg, &recSubmitter{fail: true})
	before := testutil.ToFloat64(submitErrors)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return testutil.ToFloat64(submitErrors) == before+1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("generator ignored cancel")
	}
	assert.Empty(t, g.Submitted())
}
