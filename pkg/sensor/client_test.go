package sensor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanksentry/tanksentry/pkg/sensor"
)

func sensorPayload() map[string]any {
	return map[string]any{
		"device_id":       "tank_monitor_01",
		"distance_cm":     120.5,
		"water_level_cm":  80.0,
		"gallons":         450.0,
		"fill_percentage": 45.0,
		"battery_voltage": 12.4,
		"wifi_rssi":       -62.0,
	}
}

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status", r.URL.Path)
		json.NewEncoder(w).Encode(sensorPayload())
	}))
	defer server.Close()

	c := sensor.NewClient(server.URL, 10*time.Second, 0)
	reading, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "tank_monitor_01", reading.DeviceID)
	assert.InDelta(t, 45.0, reading.FillPercentage, 0.001)
	assert.InDelta(t, 12.4, reading.BatteryVoltage, 0.001)
	assert.InDelta(t, -62.0, reading.SignalStrength, 0.001)
}

func TestClient_Fetch_SensorDown(t *testing.T) {
	c := sensor.NewClient("http://127.0.0.1:1", time.Second, 0)
	_, err := c.Fetch(context.Background())
	assert.Error(t, err)
}

func TestClient_Fetch_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := sensor.NewClient(server.URL, time.Second, 0)
	_, err := c.Fetch(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_ForceReading(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/status" {
			json.NewEncoder(w).Encode(sensorPayload())
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := sensor.NewClient(server.URL, 10*time.Second, 10*time.Millisecond)
	reading, err := c.ForceReading(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/reading", "/status"}, paths)
	assert.InDelta(t, 45.0, reading.FillPercentage, 0.001)
}

func TestClient_ForceReading_CancelledDuringDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := sensor.NewClient(server.URL, time.Second, time.Hour)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.ForceReading(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
