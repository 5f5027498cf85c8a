package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tanksentry/tanksentry/internal/config"
	"github.com/tanksentry/tanksentry/pkg/engine"
	"github.com/tanksentry/tanksentry/pkg/model"
	"github.com/tanksentry/tanksentry/pkg/storage"
)

// requiredFields must all be present in a pushed tank report.
var requiredFields = []string{"device_id", "distance_cm", "water_level_cm", "gallons", "fill_percentage"}

// SensorClient is the outbound sensor collaborator used by the API.
type SensorClient interface {
	Fetch(ctx context.Context) (*model.Reading, error)
	ForceReading(ctx context.Context) (*model.Reading, error)
}

// Server provides the HTTP API: health, current/history/alert queries, the
// pushed-report ingest endpoint and the force-reading trigger.
type Server struct {
	engine *engine.Engine
	store  storage.Store
	sensor SensorClient
	cfg    *config.Config
	router chi.Router
	logger *slog.Logger
}

// New creates an API server.
func New(eng *engine.Engine, store storage.Store, sensorClient SensorClient, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		engine: eng,
		store:  store,
		sensor: sensorClient,
		cfg:    cfg,
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	r.Get("/current", s.handleCurrent)
	r.Get("/history", s.handleHistory)
	r.Get("/alerts", s.handleAlerts)
	r.Get("/force-reading", s.handleForceReading)
	r.Post("/tank-data", s.handleTankData)
	r.Get("/config", s.handleConfig)

	s.router = r
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	_, err := s.store.QueryReadings(ctx, model.ReadingFilter{Limit: 1})
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"store_connected": err == nil,
	})
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if reading := s.engine.CurrentReading(); reading != nil {
		s.writeJSON(w, http.StatusOK, reading)
		return
	}

	// Nothing cached yet; try the sensor directly.
	reading, err := s.sensor.Fetch(r.Context())
	if err != nil {
		s.logger.Warn("current reading unavailable", "error", err)
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sensor data available"})
		return
	}

	s.engine.Ingest(r.Context(), reading)
	s.writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	readings, err := s.store.QueryReadings(ctx, model.ReadingFilter{
		Since: time.Now().UTC().Add(-24 * time.Hour),
		Limit: 100,
	})
	if err != nil {
		// Degrade to an empty result rather than propagate.
		s.logger.Error("query history", "error", err)
		readings = nil
	}
	if readings == nil {
		readings = []model.Reading{}
	}
	s.writeJSON(w, http.StatusOK, readings)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	alerts, err := s.store.QueryAlerts(ctx, model.AlertFilter{
		Since: time.Now().UTC().Add(-7 * 24 * time.Hour),
		Limit: 50,
	})
	if err != nil {
		s.logger.Error("query alerts", "error", err)
		alerts = nil
	}
	if alerts == nil {
		alerts = []model.AlertRecord{}
	}
	s.writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleForceReading(w http.ResponseWriter, r *http.Request) {
	reading, err := s.sensor.ForceReading(r.Context())
	if err != nil {
		s.logger.Error("force reading", "error", err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to trigger reading: " + err.Error()})
		return
	}

	s.engine.Ingest(r.Context(), reading)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    reading,
	})
}

func (s *Server) handleTankData(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
		return
	}

	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing required field: " + field})
			return
		}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
		return
	}
	var reading model.Reading
	if err := json.Unmarshal(data, &reading); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed reading: " + err.Error()})
		return
	}
	reading.ID = ""
	reading.Timestamp = time.Time{}

	s.engine.Ingest(r.Context(), &reading)
	s.logger.Info("received tank data",
		"device_id", reading.DeviceID,
		"fill_percentage", reading.FillPercentage,
	)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Data received successfully",
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"sensor_address":      s.cfg.Sensor.Address,
		"poll_interval":       s.cfg.Poll.Interval.String(),
		"change_pct":          s.cfg.Thresholds.ChangePct,
		"low_pct":             s.cfg.Thresholds.LowPct,
		"critical_pct":        s.cfg.Thresholds.CriticalPct,
		"emergency_pct":       s.cfg.Thresholds.EmergencyPct,
		"rapid_drop_pct":      s.cfg.Thresholds.RapidDropPct,
		"battery_low_voltage": s.cfg.Battery.LowVoltage,
		"push_enabled":        s.cfg.Push.Enabled,
		"push_topic":          s.cfg.Push.Topic,
		"email_enabled":       s.cfg.Email.Enabled,
	})
}
