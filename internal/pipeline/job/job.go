// Package job tracks the state of asynchronous generation runs. State lives
// behind an injected Store rather than a process-global map so the pipeline
// stays testable and multiple instances can share a backend.
package job

import (
	"context"
	"time"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Item is the per-recipient outcome retained with the job. Document bytes are
// deliberately absent; persisting rendered output is the caller's concern.
type Item struct {
	RecipientEmail string `json:"recipientEmail"`
	Fingerprint    string `json:"fingerprint,omitempty"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
}

// State is a snapshot of one run. Percent is completed/total and only ever
// grows for a given job. Error is set only for failed jobs and describes the
// run-level failure; per-recipient failures live on the items.
type State struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Percent   int       `json:"percent"`
	Items     []Item    `json:"items,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists job snapshots. Save overwrites the whole state; Find returns
// sentinel.ErrNotFound for unknown IDs.
type Store interface {
	Save(ctx context.Context, state State) error
	Find(ctx context.Context, id string) (State, error)
}
