package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// PushNotifier sends topic messages to a push gateway over HTTP.
type PushNotifier struct {
	url       string
	serverKey string
	topic     string
	client    *http.Client
}

// NewPushNotifier creates a push channel addressed to a fixed alert topic.
func NewPushNotifier(url, serverKey, topic string) *PushNotifier {
	return &PushNotifier{
		url:       url,
		serverKey: serverKey,
		topic:     topic,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *PushNotifier) Name() string { return "push" }

func (p *PushNotifier) Send(ctx context.Context, msg Message) error {
	payload := pushPayload{
		To: "/topics/" + p.topic,
		Notification: pushNotification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: map[string]string{
			"type":           string(msg.Alert.Type),
			"severity":       string(msg.Alert.Severity),
			"current_level":  strconv.FormatFloat(msg.Alert.CurrentLevel, 'f', 1, 64),
			"previous_level": strconv.FormatFloat(msg.Alert.PreviousLevel, 'f', 1, 64),
			"change":         strconv.FormatFloat(msg.Alert.PercentChange, 'f', 1, 64),
			"gallons":        strconv.FormatFloat(msg.Alert.CurrentGallons, 'f', 1, 64),
			"timestamp":      msg.Alert.Timestamp.UTC().Format(time.RFC3339),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.serverKey != "" {
		req.Header.Set("Authorization", "key="+p.serverKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}
	return nil
}

type pushPayload struct {
	To           string            `json:"to"`
	Notification pushNotification  `json:"notification"`
	Data         map[string]string `json:"data"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
