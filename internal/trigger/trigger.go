package trigger

import "time"

// Trigger fires a callback at each scheduled instant.
//
// Implementations must treat the fire callback as fire-and-forget: it takes
// no arguments, returns nothing, and must never be able to crash the
// trigger's own scheduling loop (the scheduler wraps its callback in a
// recover boundary, but a trigger should not rely on that).
type Trigger interface {
	// Start begins firing. Idempotent.
	Start()

	// Stop prevents further firings. Idempotent; a stopped trigger can be
	// started again and resumes on schedule.
	Stop()

	// Next reports the next scheduled instant. ok is false when the trigger
	// cannot compute one (e.g. the recurrence can never fire again).
	Next() (next time.Time, ok bool)
}

// Factory builds a Trigger from a resolved schedule string and location,
// with fire invoked at every scheduled instant. The scheduler binds one
// trigger per enabled task through a Factory so tests can substitute fakes.
type Factory func(schedule string, loc *time.Location, fire func()) (Trigger, error)
