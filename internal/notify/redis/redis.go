// Package redis implements a Redis pub/sub notify.Adapter.
//
// Publishes run-completion events as JSON to a configurable channel,
// retrying with exponential backoff on any publish error.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cbr9/organizer/internal/notify"
	"github.com/cbr9/organizer/internal/notify/retry"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "organizer:run_completed"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is the Redis connection URL, e.g. redis://[:password@]host:port[/db].
	URL     string
	Channel string
	Timeout time.Duration
	Retries int
}

// Adapter publishes run completion events via Redis PUBLISH.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis pub/sub adapter. Returns an error if cfg.URL is
// empty or cannot be parsed as a Redis connection URL.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Adapter{config: cfg, client: goredis.NewClient(opts)}, nil
}

// Publish sends event as a JSON PUBLISH to the configured channel,
// retrying with exponential backoff. Every PUBLISH attempt is itself
// bounded by config.Timeout, independent of the overall retry budget.
func (a *Adapter) Publish(ctx context.Context, event *notify.RunCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	policy := retry.Policy{Attempts: 1 + a.config.Retries}
	if err := policy.Do(ctx, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		return a.client.Publish(publishCtx, a.config.Channel, body).Err()
	}, nil); err != nil {
		return fmt.Errorf("redis: publish failed: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ notify.Adapter = (*Adapter)(nil)
