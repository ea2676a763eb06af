package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/emsdispatch/core/metrics"
	"github.com/kilianp07/emsdispatch/core/model"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordAllocation(coremetrics.AllocationEvent{
		Phase: model.Ambulance, ProviderID: "AMB-1", Score: 90, Kind: model.KindTrauma,
		Severity: model.SeverityHigh, Latency: 2 * time.Second,
	}))
	require.NoError(t, sink.RecordProposal(coremetrics.ProposalEvent{Phase: model.Hospital, ProviderID: "HOSP-1", Result: "lost"}))
	require.NoError(t, sink.RecordCompletion(coremetrics.CompletionEvent{State: model.StateCancelled, Kind: model.KindGeneral}))
	require.NoError(t, sink.RecordStall(coremetrics.StallEvent{Phase: model.Ambulance, Reason: "no providers registered"}))
	require.NoError(t, sink.RecordGatewayAction(coremetrics.GatewayEvent{Action: "traffic_hold"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.allocations.WithLabelValues("ambulance", "AMB-1", "trauma")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.proposals.WithLabelValues("hospital", "HOSP-1", "lost")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.outcomes.WithLabelValues("cancelled", "general")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.stalls.WithLabelValues("ambulance", "no providers registered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.gateway.WithLabelValues("traffic_hold")))
	assert.Equal(t, 2, testutil.CollectAndCount(sink.scores)+testutil.CollectAndCount(sink.latency))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, second.RecordGatewayAction(coremetrics.GatewayEvent{Action: "traffic_resume"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(first.gateway.WithLabelValues("traffic_resume")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, sink.RecordGatewayAction(coremetrics.GatewayEvent{Action: "route_priority_requested"}))

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), `ems_gateway_actions_total{action="route_priority_requested"} 1`)
}
