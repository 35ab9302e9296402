package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "" or "none": storage disabled
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means driver default
	Retention   time.Duration // 0 means keep forever
}

// Record is one finalized execution as persisted. Keep it compact and
// schema-stable.
type Record struct {
	ID          string
	Task        string
	Status      string
	ScheduledAt time.Time
	StartedAt   time.Time
	Duration    time.Duration
	Error       string
	Reason      string
}

// Store is the minimal persistence API used by the host.
type Store interface {
	AppendExecution(ctx context.Context, r Record) error
	RecentExecutions(ctx context.Context, task string, limit int) ([]Record, error)
	Close() error
}
