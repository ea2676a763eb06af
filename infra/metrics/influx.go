package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/emsdispatch/core/metrics"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes allocation events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAllocation writes the assignment of a phase winner.
func (s *InfluxSink) RecordAllocation(ev coremetrics.AllocationEvent) error {
	p := write.NewPointWithMeasurement("allocation").
		AddTag("phase", string(ev.Phase)).
		AddTag("provider_id", ev.ProviderID).
		AddTag("kind", ev.Kind.String()).
		AddTag("severity", ev.Severity.String()).
		AddField("incident_id", strconv.FormatUint(ev.IncidentID, 10)).
		AddField("score", ev.Score).
		AddField("candidates", ev.Candidates).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordProposal writes a proposal outcome.
func (s *InfluxSink) RecordProposal(ev coremetrics.ProposalEvent) error {
	p := write.NewPointWithMeasurement("proposal").
		AddTag("phase", string(ev.Phase)).
		AddTag("provider_id", ev.ProviderID).
		AddTag("result", ev.Result).
		AddField("incident_id", strconv.FormatUint(ev.IncidentID, 10)).
		AddField("score", ev.Score).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordCompletion writes a closed incident.
func (s *InfluxSink) RecordCompletion(ev coremetrics.CompletionEvent) error {
	p := write.NewPointWithMeasurement("incident_closed").
		AddTag("state", stateLabel(ev.State)).
		AddTag("kind", ev.Kind.String()).
		AddTag("severity", ev.Severity.String())
	if ev.AmbulanceID != "" {
		p = p.AddTag("ambulance_id", ev.AmbulanceID)
	}
	if ev.HospitalID != "" {
		p = p.AddTag("hospital_id", ev.HospitalID)
	}
	p = p.AddField("incident_id", strconv.FormatUint(ev.IncidentID, 10)).
		AddField("response_s", round3(ev.ResponseSeconds)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordStall writes a stalled phase.
func (s *InfluxSink) RecordStall(ev coremetrics.StallEvent) error {
	p := write.NewPointWithMeasurement("phase_stalled").
		AddTag("phase", string(ev.Phase)).
		AddField("incident_id", strconv.FormatUint(ev.IncidentID, 10)).
		AddField("reason", ev.Reason).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordGatewayAction writes a traffic or hand-off action.
func (s *InfluxSink) RecordGatewayAction(ev coremetrics.GatewayEvent) error {
	p := write.NewPointWithMeasurement("gateway_action").
		AddTag("action", ev.Action)
	if ev.Location != "" {
		p = p.AddTag("location", string(ev.Location))
	}
	p = p.AddField("incident_id", strconv.FormatUint(ev.IncidentID, 10)).
		SetTime(ev.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func stateLabel(s model.State) string {
	return strings.ToLower(s.String())
}
