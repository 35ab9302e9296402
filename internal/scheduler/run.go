package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"taskwheel/internal/task"
	"taskwheel/pkg/logx"
)

// skipReasonOverlap is the recorded reason when a firing loses to an
// in-flight run of the same task.
const skipReasonOverlap = "still running from previous execution"

// execute runs one attempt for js through the full algorithm: overlap check,
// constraints, timeout-raced handler, callbacks, guaranteed cleanup, history.
// It always returns a finalized record and appends it to history exactly once.
func (m *Manager) execute(ctx context.Context, js *jobState, scheduledAt time.Time) *Execution {
	def := js.def
	startedAt := time.Now()

	run := task.Context{
		Name:        def.Name(),
		ScheduledAt: scheduledAt,
		StartedAt:   startedAt,
		LastRunAt:   js.lastRun(),
	}
	exec := Execution{
		ID:          uuid.NewString(),
		Task:        def.Name(),
		ScheduledAt: scheduledAt,
		StartedAt:   startedAt,
		Status:      StatusRunning,
	}

	// Overlap check. The running flag is the sole per-task mutual exclusion;
	// a firing that arrives while one is in flight is skipped, never queued.
	// This early read is only a cheap bail-out: the authoritative decision is
	// the tryBegin transition below, after constraints.
	if def.WithoutOverlapping() && js.isRunning() {
		m.finalizeSkip(&exec, run, skipReasonOverlap)
		return &exec
	}

	// Constraints, in declared order, short-circuiting on the first veto.
	// A constraint error (or panic) means "do not run"; it is never surfaced
	// as a task failure.
	for i, c := range def.Constraints() {
		ok, err := m.checkConstraint(c, run)
		label := c.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if err != nil {
			m.finalizeSkip(&exec, run, fmt.Sprintf("constraint %s errored: %v", label, err))
			return &exec
		}
		if !ok {
			m.finalizeSkip(&exec, run, fmt.Sprintf("constraint %s not satisfied", label))
			return &exec
		}
	}

	// Acquire the running flag. For an overlap-protected task the flag must
	// transition false->true in one critical section; two concurrent firings
	// that both passed the early check (and the constraint window between)
	// race here, and exactly one wins.
	if def.WithoutOverlapping() {
		if !js.tryBegin() {
			m.finalizeSkip(&exec, run, skipReasonOverlap)
			return &exec
		}
	} else {
		js.setRunning(true)
	}
	// Cleared only after the record is in history and the finalization hook
	// has returned, so Stop's drain covers hook delivery too.
	defer js.setRunning(false)

	m.runHandler(ctx, js, &exec, run)

	m.record(exec)
	return &exec
}

// record appends a finalized execution to history and notifies the audit
// hook, in that order.
func (m *Manager) record(exec Execution) {
	m.history.Append(exec)
	m.safeHook("on_execution_finalized", func() {
		if m.opts.Hooks.OnExecutionFinalized != nil {
			m.opts.Hooks.OnExecutionFinalized(exec)
		}
	})
}

// runHandler covers the running section of the algorithm. The caller has
// already acquired the running flag and guarantees (via defer) that it is
// cleared for every outcome, including timeout and panicking callbacks.
func (m *Manager) runHandler(ctx context.Context, js *jobState, exec *Execution, run task.Context) {
	def := js.def

	m.safeHook("on_task_start", func() {
		if m.opts.Hooks.OnTaskStart != nil {
			m.opts.Hooks.OnTaskStart(run)
		}
	})

	took, err := m.invoke(ctx, def, run)

	if err == nil {
		completedAt := time.Now()
		exec.Status = StatusCompleted
		exec.CompletedAt = completedAt
		exec.Duration = took
		js.setLastRun(completedAt)

		m.log.Debug("task completed",
			logx.String("task", def.Name()), logx.Duration("took", took))

		cb := def.Callbacks()
		m.safeHook("on_success", func() {
			if cb.OnSuccess != nil {
				cb.OnSuccess(run, took)
			}
		})
		m.safeHook("on_task_complete", func() {
			if m.opts.Hooks.OnTaskComplete != nil {
				m.opts.Hooks.OnTaskComplete(run, took)
			}
		})
		return
	}

	exec.Status = StatusFailed
	exec.CompletedAt = run.StartedAt.Add(took)
	exec.Duration = took
	exec.Error = err.Error()
	// lastRunAt stays untouched on failure.

	if js.failLog.Allow() {
		m.log.Warn("task failed",
			logx.String("task", def.Name()), logx.Err(err), logx.Duration("took", took))
	} else {
		m.log.Debug("task failed",
			logx.String("task", def.Name()), logx.Err(err), logx.Duration("took", took))
	}

	cb := def.Callbacks()
	m.safeHook("on_failure", func() {
		if cb.OnFailure != nil {
			cb.OnFailure(run, err, took)
		}
	})
	m.safeHook("on_task_error", func() {
		if m.opts.Hooks.OnTaskError != nil {
			m.opts.Hooks.OnTaskError(run, err, took)
		}
	})
}

// invoke races the handler against the task's timeout. On timeout the
// reported duration is the configured timeout, not the handler's eventual
// wall time; the handler goroutine is abandoned and its result discarded.
func (m *Manager) invoke(ctx context.Context, def *task.Definition, run task.Context) (time.Duration, error) {
	timeout := def.Timeout()

	hctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Buffered so the abandoned goroutine can always deliver and exit.
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("panic in task handler",
					logx.String("task", def.Name()),
					logx.Any("panic", r),
					logx.Stack(string(debug.Stack())))
				done <- fmt.Errorf("handler panic: %v", r)
			}
		}()
		done <- def.Handler()(hctx, run)
	}()

	if timeout <= 0 {
		err := <-done
		return time.Since(run.StartedAt), err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return time.Since(run.StartedAt), err
	case <-timer.C:
		return timeout, fmt.Errorf("timed out after %s", timeout)
	}
}

// finalizeSkip terminates an attempt without running the handler: fires the
// skip callbacks (isolated), records the reason and appends to history.
// Skips carry zero duration.
func (m *Manager) finalizeSkip(exec *Execution, run task.Context, reason string) {
	exec.Status = StatusSkipped
	exec.CompletedAt = run.StartedAt
	exec.Duration = 0
	exec.Reason = reason

	m.log.Debug("task skipped",
		logx.String("task", exec.Task), logx.String("reason", reason))

	js := m.jobs[exec.Task]
	cb := js.def.Callbacks()
	m.safeHook("on_skip", func() {
		if cb.OnSkip != nil {
			cb.OnSkip(run, reason)
		}
	})
	m.safeHook("on_task_skip", func() {
		if m.opts.Hooks.OnTaskSkip != nil {
			m.opts.Hooks.OnTaskSkip(run, reason)
		}
	})

	m.record(*exec)
}

// checkConstraint evaluates one predicate, converting a panic into an error
// so it vetoes the run instead of escaping.
func (m *Manager) checkConstraint(c task.Constraint, run task.Context) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("panic in task constraint",
				logx.String("task", run.Name),
				logx.String("constraint", c.Name),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())))
			ok = false
			err = fmt.Errorf("constraint panic: %v", r)
		}
	}()
	if c.Check == nil {
		return true, nil
	}
	return c.Check(run)
}

// safeHook isolates a callback: a panic is logged and discarded, never
// allowed to alter the execution's already-determined outcome or skip the
// cleanup step.
func (m *Manager) safeHook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("panic in lifecycle callback",
				logx.String("callback", name),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())))
		}
	}()
	fn()
}
