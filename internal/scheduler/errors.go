package scheduler

import "errors"

var (
	// ErrTaskNotFound is returned by RunTask and Task for names that were
	// never registered or belong to disabled definitions. It is the only
	// error category that propagates to callers synchronously.
	ErrTaskNotFound = errors.New("task not found")

	// ErrDuplicateTask is returned by New when two enabled definitions share
	// a name.
	ErrDuplicateTask = errors.New("duplicate task name")
)
