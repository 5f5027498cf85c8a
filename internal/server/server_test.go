package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanksentry/tanksentry/internal/config"
	"github.com/tanksentry/tanksentry/internal/server"
	"github.com/tanksentry/tanksentry/pkg/engine"
	"github.com/tanksentry/tanksentry/pkg/model"
	"github.com/tanksentry/tanksentry/pkg/notify"
	"github.com/tanksentry/tanksentry/pkg/storage"
)

type fakeSensor struct {
	reading *model.Reading
	err     error
}

func (f *fakeSensor) Fetch(context.Context) (*model.Reading, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := *f.reading
	return &r, nil
}

func (f *fakeSensor) ForceReading(ctx context.Context) (*model.Reading, error) {
	return f.Fetch(ctx)
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, notify.Alert) {}

type testServer struct {
	srv    *server.Server
	store  *storage.SQLite
	engine *engine.Engine
	sensor *fakeSensor
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	eng := engine.New(engine.Options{
		Thresholds: engine.Thresholds{ChangePct: 10, LowPct: 20, CriticalPct: 10, EmergencyPct: 5, RapidDropPct: 15},
		Cooldowns:  map[model.CooldownClass]time.Duration{},
	}, store, noopDispatcher{}, logger)

	cfg := &config.Config{}
	cfg.Sensor.Address = "192.168.86.90"
	cfg.Poll.Interval = 5 * time.Minute
	cfg.Thresholds.ChangePct = 10
	cfg.Push.Topic = "tank_alerts"

	sensorClient := &fakeSensor{
		reading: &model.Reading{
			DeviceID:       "tank_monitor_01",
			Distance:       120,
			WaterLevel:     80,
			Gallons:        450,
			FillPercentage: 45,
			BatteryVoltage: 12.4,
		},
	}

	return &testServer{
		srv:    server.New(eng, store, sensorClient, cfg, logger),
		store:  store,
		engine: eng,
		sensor: sensorClient,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["store_connected"])
}

func TestServer_TankData_Ingests(t *testing.T) {
	ts := newTestServer(t)
	payload := `{"device_id":"tank_monitor_01","distance_cm":120,"water_level_cm":80,"gallons":450,"fill_percentage":45,"battery_voltage":12.4}`

	rec := ts.do(t, http.MethodPost, "/tank-data", payload)
	assert.Equal(t, http.StatusOK, rec.Code)

	readings, err := ts.store.QueryReadings(context.Background(), model.ReadingFilter{})
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.InDelta(t, 45.0, readings[0].FillPercentage, 0.001)

	current := ts.engine.CurrentReading()
	require.NotNil(t, current)
	assert.Equal(t, "tank_monitor_01", current.DeviceID)
}

func TestServer_TankData_MissingFieldRejected(t *testing.T) {
	// Scenario E: missing gallons is a client error with no state mutation.
	ts := newTestServer(t)
	payload := `{"device_id":"tank_monitor_01","distance_cm":120,"water_level_cm":80,"fill_percentage":45}`

	rec := ts.do(t, http.MethodPost, "/tank-data", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "gallons")

	readings, err := ts.store.QueryReadings(context.Background(), model.ReadingFilter{})
	require.NoError(t, err)
	assert.Empty(t, readings)
	assert.Nil(t, ts.engine.CurrentReading())
}

func TestServer_TankData_InvalidJSON(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/tank-data", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Current_FromCache(t *testing.T) {
	ts := newTestServer(t)
	ts.engine.Ingest(context.Background(), &model.Reading{DeviceID: "tank_monitor_01", FillPercentage: 33})

	rec := ts.do(t, http.MethodGet, "/current", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var reading model.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reading))
	assert.InDelta(t, 33.0, reading.FillPercentage, 0.001)
}

func TestServer_Current_FetchesWhenEmpty(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/current", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// The lazily fetched reading became the cached current reading.
	require.NotNil(t, ts.engine.CurrentReading())
	assert.InDelta(t, 45.0, ts.engine.CurrentReading().FillPercentage, 0.001)
}

func TestServer_Current_NotFoundWhenSensorDown(t *testing.T) {
	ts := newTestServer(t)
	ts.sensor.err = errors.New("connection refused")

	rec := ts.do(t, http.MethodGet, "/current", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_History_Bounded(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, ts.store.RecordReading(ctx, &model.Reading{FillPercentage: 50, Timestamp: now.Add(-time.Hour)}))
	require.NoError(t, ts.store.RecordReading(ctx, &model.Reading{FillPercentage: 40, Timestamp: now.Add(-30 * time.Hour)}))

	rec := ts.do(t, http.MethodGet, "/history", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var readings []model.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &readings))
	require.Len(t, readings, 1, "history is limited to the last 24h")
	assert.InDelta(t, 50.0, readings[0].FillPercentage, 0.001)
}

func TestServer_History_EmptyIsList(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/history", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestServer_Alerts(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, ts.store.RecordAlert(ctx, &model.AlertRecord{
		Type: model.AlertTypeChange, Severity: model.SeverityNormal, Timestamp: now.Add(-time.Hour),
	}))
	require.NoError(t, ts.store.RecordAlert(ctx, &model.AlertRecord{
		Type: model.AlertTypeCritical, Severity: model.SeverityCritical, Timestamp: now.Add(-8 * 24 * time.Hour),
	}))

	rec := ts.do(t, http.MethodGet, "/alerts", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var alerts []model.AlertRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1, "alerts are limited to the last 7 days")
	assert.Equal(t, model.AlertTypeChange, alerts[0].Type)
}

func TestServer_ForceReading(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/force-reading", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool          `json:"success"`
		Data    model.Reading `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.InDelta(t, 45.0, body.Data.FillPercentage, 0.001)
	assert.NotNil(t, ts.engine.CurrentReading())
}

func TestServer_ForceReading_SensorDown(t *testing.T) {
	ts := newTestServer(t)
	ts.sensor.err = errors.New("timeout")

	rec := ts.do(t, http.MethodGet, "/force-reading", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServer_Config(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/config", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "192.168.86.90", body["sensor_address"])
	assert.Equal(t, "tank_alerts", body["push_topic"])
}
