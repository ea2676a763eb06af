package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/emsdispatch/core/metrics"
	"github.com/kilianp07/emsdispatch/core/model"
)

func captureServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, strings.TrimSpace(string(b)))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), bodies...)
	}
}

func lineProtocol(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordAllocation(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.AllocationEvent{
		IncidentID: 7,
		Phase:      model.Ambulance,
		ProviderID: "AMB-2",
		Score:      85,
		Candidates: 3,
		Kind:       model.KindCardiac,
		Severity:   model.SeverityCritical,
		Latency:    1500 * time.Millisecond,
		Time:       now,
	}
	if err := sink.RecordAllocation(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("allocation").
		AddTag("phase", "ambulance").
		AddTag("provider_id", "AMB-2").
		AddTag("kind", "cardiac").
		AddTag("severity", "critical").
		AddField("incident_id", "7").
		AddField("score", 85).
		AddField("candidates", 3).
		AddField("latency_ms", 1500.0).
		SetTime(now)
	got := bodies()
	if len(got) != 1 || got[0] != lineProtocol(p) {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestInfluxSink_RecordCompletion(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.CompletionEvent{
		IncidentID:      9,
		Kind:            model.KindTrauma,
		Severity:        model.SeverityHigh,
		State:           model.StateCompleted,
		AmbulanceID:     "AMB-1",
		HospitalID:      "HOSP-1",
		ResponseSeconds: 13.0004,
		Time:            now,
	}
	if err := sink.RecordCompletion(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("incident_closed").
		AddTag("state", "completed").
		AddTag("kind", "trauma").
		AddTag("severity", "high").
		AddTag("ambulance_id", "AMB-1").
		AddTag("hospital_id", "HOSP-1").
		AddField("incident_id", "9").
		AddField("response_s", 13.0).
		SetTime(now)
	got := bodies()
	if len(got) != 1 || got[0] != lineProtocol(p) {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestInfluxSink_RecordStallAndGateway(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordStall(coremetrics.StallEvent{IncidentID: 3, Phase: model.Hospital, Reason: "every provider refused", Time: now}); err != nil {
		t.Fatalf("record stall: %v", err)
	}
	if err := sink.RecordGatewayAction(coremetrics.GatewayEvent{Action: "traffic_hold", Location: "Downtown", Time: now}); err != nil {
		t.Fatalf("record gateway: %v", err)
	}
	stall := write.NewPointWithMeasurement("phase_stalled").
		AddTag("phase", "hospital").
		AddField("incident_id", "3").
		AddField("reason", "every provider refused").
		SetTime(now)
	gw := write.NewPointWithMeasurement("gateway_action").
		AddTag("action", "traffic_hold").
		AddTag("location", "Downtown").
		AddField("incident_id", "0").
		SetTime(now)
	got := bodies()
	if len(got) != 2 || got[0] != lineProtocol(stall) || got[1] != lineProtocol(gw) {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
