package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tanksentry/tanksentry/pkg/model"
)

// Client fetches readings from the tank sensor over HTTP.
type Client struct {
	baseURL      string
	triggerDelay time.Duration
	httpClient   *http.Client
}

// NewClient creates a sensor client. fetchTimeout bounds every request;
// triggerDelay is how long the device needs to complete a forced measurement
// before the status is re-fetched.
func NewClient(baseURL string, fetchTimeout, triggerDelay time.Duration) *Client {
	return &Client{
		baseURL:      baseURL,
		triggerDelay: triggerDelay,
		httpClient: &http.Client{
			Timeout: fetchTimeout,
		},
	}
}

// Fetch retrieves the current sensor status.
func (c *Client) Fetch(ctx context.Context) (*model.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sensor status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sensor returned status %d", resp.StatusCode)
	}

	var reading model.Reading
	if err := json.NewDecoder(resp.Body).Decode(&reading); err != nil {
		return nil, fmt.Errorf("decode sensor status: %w", err)
	}
	return &reading, nil
}

// ForceReading triggers a fresh measurement on the device, waits for it to
// complete, then fetches the updated status.
func (c *Client) ForceReading(ctx context.Context) (*model.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reading", nil)
	if err != nil {
		return nil, fmt.Errorf("create trigger request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trigger sensor reading: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sensor trigger returned status %d", resp.StatusCode)
	}

	select {
	case <-time.After(c.triggerDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return c.Fetch(ctx)
}
