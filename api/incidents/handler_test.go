package incidents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kilianp07/emsdispatch/api/incidents/mocks"
	"github.com/kilianp07/emsdispatch/core/archive"
	"github.com/kilianp07/emsdispatch/core/coordinator"
	"github.com/kilianp07/emsdispatch/core/model"
)

type testEnv struct {
	svc     *mocks.MockService
	archive *mocks.MockArchiveReader
	fleet   *mocks.MockFleetReader
	router  *gin.Engine
}

func newTestEnv(t *testing.T) testEnv {
	ctrl := gomock.NewController(t)
	env := testEnv{
		svc:     mocks.NewMockService(ctrl),
		archive: mocks.NewMockArchiveReader(ctrl),
		fleet:   mocks.NewMockFleetReader(ctrl),
	}
	gin.SetMode(gin.TestMode)
	env.router = NewRouter(NewHandler(env.svc, env.archive, env.fleet, nil))
	return env
}

func makeRequest(router *gin.Engine, method, url string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestSubmitIncident_Success(t *testing.T) {
	env := newTestEnv(t)
	inc := model.Incident{ID: 7, Kind: model.KindCardiac, Severity: model.SeverityCritical, Location: "Downtown", State: model.StateAmbulanceBidding}
	env.svc.EXPECT().Submit(gomock.Any(), model.KindCardiac, model.SeverityCritical, model.Location("Downtown")).Return(uint64(7), nil)
	env.svc.EXPECT().Incident(uint64(7)).Return(inc, true)

	w := makeRequest(env.router, http.MethodPost, "/api/incidents", jsonBody(t, SubmitRequest{Kind: "cardiac", Severity: "critical", Location: "Downtown"}))
	require.Equal(t, http.StatusCreated, w.Code)
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(7), resp.ID)
	assert.Equal(t, model.StateAmbulanceBidding, resp.Incident.State)
}

func TestSubmitIncident_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	env.svc.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(env.router, http.MethodPost, "/api/incidents", bytes.NewBufferString(`{"kind":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")

	w = makeRequest(env.router, http.MethodPost, "/api/incidents", jsonBody(t, SubmitRequest{Kind: "zombie", Severity: "low", Location: "Downtown"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = makeRequest(env.router, http.MethodPost, "/api/incidents", jsonBody(t, SubmitRequest{Kind: "trauma", Severity: "low"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitIncident_ServiceRejects(t *testing.T) {
	env := newTestEnv(t)
	env.svc.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(uint64(0), fmt.Errorf("%w: blank location", coordinator.ErrInvalidInput))

	w := makeRequest(env.router, http.MethodPost, "/api/incidents", jsonBody(t, SubmitRequest{Kind: "trauma", Severity: "low", Location: "x"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetIncident(t *testing.T) {
	env := newTestEnv(t)
	env.svc.EXPECT().Incident(uint64(3)).Return(model.Incident{ID: 3, AssignedAmbulance: "A1"}, true)
	env.svc.EXPECT().Incident(uint64(4)).Return(model.Incident{}, false)

	w := makeRequest(env.router, http.MethodGet, "/api/incidents/3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var inc model.Incident
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inc))
	assert.Equal(t, "A1", inc.AssignedAmbulance)

	assert.Equal(t, http.StatusNotFound, makeRequest(env.router, http.MethodGet, "/api/incidents/4", nil).Code)
	assert.Equal(t, http.StatusBadRequest, makeRequest(env.router, http.MethodGet, "/api/incidents/abc", nil).Code)
}

func TestListIncidents_FilterByState(t *testing.T) {
	env := newTestEnv(t)
	env.svc.EXPECT().Incidents().Return([]model.Incident{
		{ID: 2, State: model.StateEnRoute},
		{ID: 1, State: model.StateEnRoute},
		{ID: 3, State: model.StateCompleted},
	}).Times(2)

	w := makeRequest(env.router, http.MethodGet, "/api/incidents?state=en_route", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Incident
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, uint64(1), list[0].ID)

	assert.Equal(t, http.StatusBadRequest, makeRequest(env.router, http.MethodGet, "/api/incidents?state=lost", nil).Code)
}

func TestCompleteIncident_ErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	env.svc.EXPECT().CompleteIncident(gomock.Any(), uint64(1), 42.5).Return(nil)
	env.svc.EXPECT().CompleteIncident(gomock.Any(), uint64(2), 1.0).Return(fmt.Errorf("%w: ambulance only", coordinator.ErrInvalidTransition))
	env.svc.EXPECT().CompleteIncident(gomock.Any(), uint64(3), 1.0).Return(fmt.Errorf("%w: 3", coordinator.ErrUnknownIncident))

	w := makeRequest(env.router, http.MethodPost, "/api/incidents/1/complete", jsonBody(t, CompleteRequest{ResponseSeconds: 42.5}))
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = makeRequest(env.router, http.MethodPost, "/api/incidents/2/complete", jsonBody(t, CompleteRequest{ResponseSeconds: 1}))
	assert.Equal(t, http.StatusConflict, w.Code)
	w = makeRequest(env.router, http.MethodPost, "/api/incidents/3/complete", jsonBody(t, CompleteRequest{ResponseSeconds: 1}))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = makeRequest(env.router, http.MethodPost, "/api/incidents/3/complete", jsonBody(t, CompleteRequest{ResponseSeconds: -1}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelIncident(t *testing.T) {
	env := newTestEnv(t)
	env.svc.EXPECT().Cancel(gomock.Any(), uint64(5)).Return(nil)
	env.svc.EXPECT().Cancel(gomock.Any(), uint64(6)).Return(fmt.Errorf("boom"))

	assert.Equal(t, http.StatusNoContent, makeRequest(env.router, http.MethodDelete, "/api/incidents/5", nil).Code)
	w := makeRequest(env.router, http.MethodDelete, "/api/incidents/6", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t)
	env.svc.EXPECT().Stats().Return(coordinator.Stats{Submitted: 4, Completed: 3, MeanResponseSeconds: 12})

	w := makeRequest(env.router, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var s coordinator.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, 4, s.Submitted)
	assert.Equal(t, 12.0, s.MeanResponseSeconds)
}

func TestQueryArchive(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	env.archive.EXPECT().Query(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, q archive.Query) ([]archive.Record, error) {
		assert.True(t, q.Start.Equal(start))
		assert.Equal(t, "H1", q.ProviderID)
		require.NotNil(t, q.Kind)
		assert.Equal(t, model.KindTrauma, *q.Kind)
		require.NotNil(t, q.State)
		assert.Equal(t, model.StateCompleted, *q.State)
		assert.Equal(t, 10, q.Limit)
		return []archive.Record{{IncidentID: 9}}, nil
	})

	w := makeRequest(env.router, http.MethodGet, "/api/archive?start=2026-01-02T00:00:00Z&provider_id=H1&kind=trauma&state=completed&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recs []archive.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, uint64(9), recs[0].IncidentID)

	assert.Equal(t, http.StatusBadRequest, makeRequest(env.router, http.MethodGet, "/api/archive?limit=-2", nil).Code)
	assert.Equal(t, http.StatusBadRequest, makeRequest(env.router, http.MethodGet, "/api/archive?start=yesterday", nil).Code)
}

func TestListProviders(t *testing.T) {
	env := newTestEnv(t)
	env.fleet.EXPECT().Snapshot().Return([]model.ProviderState{
		{ID: "A1", Kind: model.Ambulance, Available: true},
		{ID: "H1", Kind: model.Hospital, Capacity: 10},
	})

	w := makeRequest(env.router, http.MethodGet, "/api/providers?kind=hospital", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var states []model.ProviderState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &states))
	require.Len(t, states, 1)
	assert.Equal(t, "H1", states[0].ID)
}

func TestOptionalRoutesDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := mocks.NewMockService(gomock.NewController(t))
	router := NewRouter(NewHandler(svc, nil, nil, nil))
	assert.Equal(t, http.StatusNotFound, makeRequest(router, http.MethodGet, "/api/archive", nil).Code)
	assert.Equal(t, http.StatusNotFound, makeRequest(router, http.MethodGet, "/api/providers", nil).Code)
	assert.Equal(t, http.StatusOK, makeRequest(router, http.MethodGet, "/healthz", nil).Code)
}
