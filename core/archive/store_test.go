package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/emsdispatch/core/model"
)

func sampleRecords(base time.Time) []Record {
	return []Record{
		FromIncident(model.Incident{
			ID: 1, Kind: model.KindCardiac, Severity: model.SeverityCritical, Location: "Downtown",
			State: model.StateCompleted, AssignedAmbulance: "A2", AssignedHospital: "H1",
			AmbulanceProposals: []model.Proposal{{ProviderID: "A1", Score: 40}, {ProviderID: "A2", Score: 85}},
			ClosedAt:           base, ResponseSeconds: 12.5,
		}),
		FromIncident(model.Incident{
			ID: 2, Kind: model.KindTrauma, Location: "Suburb_A",
			State: model.StateCancelled, ClosedAt: base.Add(time.Minute),
		}),
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, r := range sampleRecords(base) {
		require.NoError(t, s.Append(ctx, r))
	}

	all, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	out, err := s.Query(ctx, Query{ProviderID: "A1"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(1), out[0].IncidentID)
	assert.Equal(t, 12.5, out[0].ResponseSeconds)

	cancelled := model.StateCancelled
	out, err = s.Query(ctx, Query{State: &cancelled})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(2), out[0].IncidentID)

	cardiac := model.KindCardiac
	out, err = s.Query(ctx, Query{Kind: &cardiac, Start: base.Add(time.Second)})
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = s.Query(ctx, Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(2), out[0].IncidentID)
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "incidents.jsonl"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "archive", "incidents.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore("file:archive_test.db?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestNewFromConfig(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	assert.Equal(t, "jsonl", cfg.Backend)
	require.NoError(t, cfg.Validate())

	cfg = Config{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "a.db")}
	s, err := New(cfg)
	require.NoError(t, err)
	_, ok := s.(*SQLiteStore)
	assert.True(t, ok)
	require.NoError(t, s.Close())

	s, err = New(Config{Backend: "none"})
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	assert.Error(t, Config{Backend: "redis", Path: "x"}.Validate())
}
