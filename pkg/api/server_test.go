package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/internal/config"
	"github.com/jakechorley/oncall-rota/pkg/db"
	"github.com/jakechorley/oncall-rota/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memoryStore is an in-memory Store
type memoryStore struct {
	records map[string]*db.ScheduleRecord
	order   []string
	pingErr error
	getErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*db.ScheduleRecord)}
}

func (m *memoryStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *memoryStore) InsertSchedule(ctx context.Context, record *db.ScheduleRecord) error {
	m.records[record.Schedule.ID] = record
	m.order = append(m.order, record.Schedule.ID)
	return nil
}

func (m *memoryStore) GetSchedules(ctx context.Context) ([]db.Schedule, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []db.Schedule
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.records[m.order[i]].Schedule)
	}
	return out, nil
}

func (m *memoryStore) GetScheduleRecord(ctx context.Context, id string) (*db.ScheduleRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	record, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("schedule %s: %w", id, db.ErrNotFound)
	}
	return record, nil
}

func (m *memoryStore) UpdateScheduleDay(ctx context.Context, day db.ScheduleDay) error {
	record, ok := m.records[day.ScheduleID]
	if !ok {
		return db.ErrNotFound
	}
	record.Days[day.Day-1] = day
	return nil
}

const pairsRequestJSON = `{
  "year": 2025,
  "month": 4,
  "residents": [
    {"name": "Amy", "rank": "R3"}, {"name": "Ben", "rank": "R3"},
    {"name": "Cat", "rank": "R4"}, {"name": "Dan", "rank": "R4"},
    {"name": "Eve", "rank": "R5"}, {"name": "Fay", "rank": "R5"},
    {"name": "Gus", "rank": "R6"}, {"name": "Hal", "rank": "R6"}
  ],
  "flapDays": [7],
  "seed": 42
}`

type testServer struct {
	store    *memoryStore
	registry *prometheus.Registry
	router   *gin.Engine
}

func newTestServer() *testServer {
	store := newMemoryStore()
	registry := prometheus.NewRegistry()
	srv := NewServer(store, &config.Config{MaxAttempts: 200, Workers: 1}, zap.NewNop(), metrics.NewPrometheus(registry, "oncall"), registry)
	return &testServer{store: store, registry: registry, router: srv.Router()}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.store.pingErr = errors.New("down")
	rec = ts.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGenerateSchedule_Saved(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodPost, "/api/schedules", pairsRequestJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["saved"])
	assert.NotEmpty(t, body["id"])
	assert.Len(t, ts.store.records, 1)

	outcome := body["outcome"].(map[string]any)
	assert.Len(t, outcome["calendar"], 30)
	assert.Equal(t, float64(42), outcome["seed"])
	assert.Empty(t, outcome["validationErrors"])
}

func TestGenerateSchedule_DryRun(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodPost, "/api/schedules?dryRun=true", pairsRequestJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["saved"])
	assert.Empty(t, ts.store.records)
}

func TestGenerateSchedule_Errors(t *testing.T) {
	ts := newTestServer()

	infeasible := `{"year": 2025, "month": 2, "residents": [
	  {"name": "Amy", "rank": "R3"},
	  {"name": "Eve", "rank": "R5", "unavailable": [1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16,17,18,19,20,21,22,23,24,25,26,27,28]}
	]}`

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"malformed json", "/api/schedules", `{"year":`, http.StatusBadRequest},
		{"bad dryRun flag", "/api/schedules?dryRun=maybe", pairsRequestJSON, http.StatusBadRequest},
		{"unknown rank", "/api/schedules", strings.Replace(pairsRequestJSON, `"R6"}, {"name": "Hal"`, `"R9"}, {"name": "Hal"`, 1), http.StatusBadRequest},
		{"infeasible", "/api/schedules", infeasible, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, decode(t, rec), "error")
		})
	}

	assert.Empty(t, ts.store.records)
}

func TestListAndViewSchedules(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/api/schedules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/schedules/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	created := decode(t, ts.do(http.MethodPost, "/api/schedules", pairsRequestJSON))
	id := created["id"].(string)

	rec = ts.do(http.MethodGet, "/api/schedules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0]["id"])

	for _, path := range []string{"/api/schedules/" + id, "/api/schedules/latest"} {
		rec = ts.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode(t, rec)
		assert.Equal(t, id, view["schedule"].(map[string]any)["id"])
		assert.Len(t, view["calendar"], 30)
		assert.Len(t, view["stats"], 8)
	}

	rec = ts.do(http.MethodGet, "/api/schedules/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditScheduleDay(t *testing.T) {
	ts := newTestServer()
	created := decode(t, ts.do(http.MethodPost, "/api/schedules", pairsRequestJSON))
	id := created["id"].(string)
	day4 := ts.store.records[id].Days[3]

	rec := ts.do(http.MethodPut, "/api/schedules/"+id+"/days/4", fmt.Sprintf(`{"line2": %q}`, day4.Line2))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	view := decode(t, rec)
	day := view["calendar"].([]any)[3].(map[string]any)
	assert.Equal(t, "single", day["coverage"])
	assert.Nil(t, day["line1"])
	assert.Equal(t, "single", ts.store.records[id].Days[3].Coverage)

	rec = ts.do(http.MethodPut, "/api/schedules/"+id+"/days/four", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPut, "/api/schedules/"+id+"/days/4", `{"line2": "Zed"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPut, "/api/schedules/missing/days/4", `{"line2": "Eve"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecomputeStats(t *testing.T) {
	ts := newTestServer()
	outcome := decode(t, ts.do(http.MethodPost, "/api/schedules?dryRun=true", pairsRequestJSON))["outcome"].(map[string]any)

	calendar, err := json.Marshal(outcome["calendar"])
	require.NoError(t, err)

	rec := ts.do(http.MethodPost, "/api/stats", fmt.Sprintf(`{"request": %s, "calendar": %s}`, pairsRequestJSON, calendar))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, outcome["stats"], body["stats"])
	assert.Empty(t, body["validationErrors"])

	rec = ts.do(http.MethodPost, "/api/stats", fmt.Sprintf(`{"request": %s, "calendar": []}`, pairsRequestJSON))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreFailureIsInternalError(t *testing.T) {
	ts := newTestServer()
	ts.store.getErr = errors.New("connection reset")

	rec := ts.do(http.MethodGet, "/api/schedules", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode(t, rec)["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer()
	ts.do(http.MethodPost, "/api/schedules?dryRun=true", pairsRequestJSON)

	rec := ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `oncall_scheduler_runs_total{result="success"} 1`)
	assert.Contains(t, rec.Body.String(), "oncall_scheduler_single_days 0")
}
