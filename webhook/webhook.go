package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	EventCrawlCompleted = "crawl.completed"
	EventCrawlFailed    = "crawl.failed"
)

// SignatureHeader carries the HMAC-SHA256 of the request body as sha256=<hex>.
const SignatureHeader = "X-Sitemapper-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// NewEvent stamps a new event with a random job ID and the current time.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		Type:      eventType,
		JobID:     uuid.NewString(),
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Notifier delivers events over HTTP with retries.
type Notifier struct {
	client *http.Client
	delays []time.Duration
	logger *slog.Logger
}

// DefaultRetryDelays are the waits before each delivery attempt.
var DefaultRetryDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

// NewNotifier creates a Notifier. nil delays use DefaultRetryDelays.
func NewNotifier(delays []time.Duration, logger *slog.Logger) *Notifier {
	if delays == nil {
		delays = DefaultRetryDelays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		client: &http.Client{Timeout: 10 * time.Second},
		delays: delays,
		logger: logger,
	}
}

// Deliver sends an event synchronously.
// The request body is signed with HMAC-SHA256 if secret is non-empty.
func (n *Notifier) Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Sitemapper-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverAsync sends an event in the background, retrying once per
// configured delay. The returned channel receives the final error (nil on
// success) and is then closed.
func (n *Notifier) DeliverAsync(url, secret string, event *Event) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		var err error
		for attempt, delay := range n.delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = n.Deliver(ctx, url, secret, event)
			cancel()
			if err == nil {
				n.logger.Info("webhook delivered",
					"url", url,
					"event", event.Type,
					"job_id", event.JobID,
					"attempt", attempt+1,
				)
				done <- nil
				return
			}
			n.logger.Warn("webhook delivery failed",
				"url", url,
				"event", event.Type,
				"job_id", event.JobID,
				"attempt", attempt+1,
				"error", err,
			)
		}
		n.logger.Error("webhook delivery exhausted all retries",
			"url", url,
			"event", event.Type,
			"job_id", event.JobID,
		)
		done <- err
	}()
	return done
}
