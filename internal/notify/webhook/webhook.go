// Package webhook implements an HTTP POST notify.Adapter.
//
// Publishes run-completion events as JSON to a configurable URL, retrying
// with exponential backoff on transient failures.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cbr9/organizer/internal/iox"
	"github.com/cbr9/organizer/internal/notify"
	"github.com/cbr9/organizer/internal/notify/retry"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the webhook adapter.
type Config struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	Retries int
}

// Adapter publishes run completion events via HTTP POST.
type Adapter struct {
	config Config
	client *http.Client
}

// New creates a webhook adapter. Returns an error if cfg.URL is empty.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook adapter requires a URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Adapter{config: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Publish POSTs event as JSON, retrying with exponential backoff. A 4xx
// response is classified non-retriable by isRetriableStatus and returned
// immediately.
func (a *Adapter) Publish(ctx context.Context, event *notify.RunCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	policy := retry.Policy{Attempts: 1 + a.config.Retries}
	if err := policy.Do(ctx, func(ctx context.Context) error {
		return a.doRequest(ctx, body)
	}, isRetriableStatus); err != nil {
		return fmt.Errorf("webhook: publish failed: %w", err)
	}
	return nil
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// isRetriableStatus treats anything but a 4xx client error as worth
// retrying: a non-HTTP transport failure (connection refused, timeout) or
// a 5xx server error may well succeed on a later attempt, while a 4xx
// reflects a request the server will keep rejecting.
func isRetriableStatus(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code < 400 || statusErr.Code >= 500
	}
	return true
}

func (a *Adapter) doRequest(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close releases the adapter's idle connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ notify.Adapter = (*Adapter)(nil)
