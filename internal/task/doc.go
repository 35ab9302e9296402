// Package task defines the immutable description of one recurring job.
//
// A Definition is fully resolved at construction time: schedule string,
// timezone, timeout, overlap policy, constraints and callbacks are all fixed
// before the definition is handed to the scheduler. The scheduler never
// mutates a Definition; per-run state lives in the scheduler's own job table.
//
// # Callbacks and constraints
//
// Constraints are predicates evaluated immediately before each run; a false
// result (or a panic inside the predicate) vetoes the run without counting as
// a failure. Callbacks (OnSuccess/OnFailure/OnSkip) are notification-only:
// they are called at most once per execution attempt and anything they panic
// with is caught and logged by the scheduler, never propagated.
package task
