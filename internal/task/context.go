package task

import "time"

// Context is the read-only input to a handler, its constraints and callbacks
// for one execution attempt. A fresh value is built per attempt.
type Context struct {
	// Name is the task's unique name.
	Name string

	// ScheduledAt is the instant the trigger intended this run to fire
	// (for manual runs, the instant RunTask was called).
	ScheduledAt time.Time

	// StartedAt is the instant the attempt actually began.
	StartedAt time.Time

	// LastRunAt is the instant of the previous successful completion.
	// Zero if the task has never completed successfully.
	LastRunAt time.Time
}

// FirstRun reports whether the task has ever completed successfully.
func (c Context) FirstRun() bool { return c.LastRunAt.IsZero() }
