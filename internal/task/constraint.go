package task

// Constraint is a run predicate evaluated immediately before execution.
//
// Returning ok=false vetoes the run. Returning an error also vetoes the run;
// the error is recorded as the skip reason and is never treated as a task
// failure. The Name shows up in skip reasons and history, so keep it short
// and stable ("maintenance-window", "disk-free", ...).
type Constraint struct {
	Name  string
	Check func(run Context) (bool, error)
}
