// Package notify defines the run-completion notification boundary.
//
// An organizer run can optionally publish a summary to a downstream
// system (a webhook endpoint, a Redis channel) once its session ends.
// Organizer owns adapter lifecycle; callers only provide configuration.
package notify

import (
	"context"
	"time"
)

// RunCompletedEvent is the payload published when a run session ends.
type RunCompletedEvent struct {
	SessionID   int64  `json:"session_id"`
	Status      string `json:"status"` // ok, error, canceled
	DryRun      bool   `json:"dry_run"`
	RulesRun    int    `json:"rules_run"`
	RulesFailed int    `json:"rules_failed"`

	ResourcesMoved   int64 `json:"resources_moved"`
	ResourcesCopied  int64 `json:"resources_copied"`
	ResourcesDeleted int64 `json:"resources_deleted"`
	ResourcesLinked  int64 `json:"resources_linked"`
	ResourcesFailed  int64 `json:"resources_failed"`
	BytesTransferred int64 `json:"bytes_transferred"`

	DurationMs int64  `json:"duration_ms"`
	Timestamp  string `json:"timestamp"` // RFC 3339
}

// Adapter publishes a run completion event to a downstream system.
// Implementations must be safe for single-use per run and must respect
// context cancellation.
type Adapter interface {
	Publish(ctx context.Context, event *RunCompletedEvent) error
	Close() error
}

// Timestamp formats t per the event's Timestamp field.
func Timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }
