// Package scheduler owns recurring task execution for taskwheel.
//
// # Overview
//
// A Manager is built once from a list of task definitions, binds one trigger
// per enabled task, and mediates every execution attempt: overlap prevention,
// constraint evaluation, timeout enforcement, callback notification and
// bounded in-memory history. Tasks are registered under a stable
// human-readable name ("backup:nightly") which is the key for manual runs,
// introspection and history filtering.
//
// # Concurrency and overlap
//
// Each task runs on its own goroutine; different tasks may overlap freely.
// Within one task the WithoutOverlap policy skips a firing while the previous
// run is still in progress — skipped, never queued. A per-task timeout bounds
// how long the manager waits on a handler; the handler's context is cancelled
// at the deadline, but a handler that ignores it is abandoned, not preempted.
//
// # Failure isolation
//
// Everything that happens inside an execution attempt is contained: handler
// errors and panics, constraint errors and callback panics all end up as a
// well-formed Execution record in history. The only error RunTask surfaces to
// its caller is ErrTaskNotFound.
//
// # Lifecycle
//
// Start and Stop are idempotent and restartable. Stop halts all triggers,
// then polls for in-flight executions up to a drain ceiling (30s by default);
// work still running past the ceiling is abandoned.
package scheduler
