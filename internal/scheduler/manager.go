package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"taskwheel/internal/task"
	"taskwheel/internal/trigger"
	"taskwheel/pkg/logx"
)

// jobState is the mutable per-task runtime state. One exists per registered
// enabled definition, owned exclusively by the Manager.
type jobState struct {
	def  *task.Definition
	trig trigger.Trigger

	mu        sync.Mutex
	running   bool
	lastRunAt time.Time

	failLog *rate.Limiter
}

func (j *jobState) isRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *jobState) setRunning(v bool) {
	j.mu.Lock()
	j.running = v
	j.mu.Unlock()
}

// tryBegin transitions the running flag false->true atomically. It reports
// false when a run is already in flight, so at most one caller wins for an
// overlap-protected task.
func (j *jobState) tryBegin() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return false
	}
	j.running = true
	return true
}

func (j *jobState) lastRun() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRunAt
}

func (j *jobState) setLastRun(t time.Time) {
	j.mu.Lock()
	j.lastRunAt = t
	j.mu.Unlock()
}

// Manager owns all job states and the execution history.
type Manager struct {
	log  logx.Logger
	opts Options
	loc  *time.Location

	jobs  map[string]*jobState
	order []string // registration order, for stable introspection output

	history *historyBuf

	mu       sync.Mutex
	started  bool
	stopping bool
}

// New builds a Manager from fully-resolved task definitions.
//
// One job state is created per enabled definition; disabled definitions are
// dropped here and never scheduled (they are also invisible to RunTask).
// Construction binds triggers but never starts them.
func New(defs []*task.Definition, opts Options) (*Manager, error) {
	opts = opts.withDefaults()

	loc, err := trigger.LoadLocation(opts.Timezone, time.Local)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		log:     opts.Log,
		opts:    opts,
		loc:     loc,
		jobs:    make(map[string]*jobState, len(defs)),
		history: newHistoryBuf(opts.HistoryCap),
	}

	for _, def := range defs {
		if def == nil {
			continue
		}
		if !def.Enabled() {
			m.log.Debug("task disabled, not scheduling", logx.String("task", def.Name()))
			continue
		}
		if _, dup := m.jobs[def.Name()]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTask, def.Name())
		}

		taskLoc := loc
		if tz := def.Timezone(); tz != "" {
			taskLoc, err = trigger.LoadLocation(tz, nil)
			if err != nil {
				return nil, fmt.Errorf("task %q: %w", def.Name(), err)
			}
		}

		js := &jobState{def: def, failLog: newFailLogLimiter()}
		trig, err := opts.TriggerFactory(def.Schedule(), taskLoc, func() { m.fire(js) })
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", def.Name(), err)
		}
		js.trig = trig

		m.jobs[def.Name()] = js
		m.order = append(m.order, def.Name())
	}

	return m, nil
}

// Start begins firing triggers. Idempotent; a stopped manager can be started
// again and resumes on schedule.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	for _, name := range m.order {
		m.jobs[name].trig.Start()
	}
	m.log.Info("scheduler started",
		logx.Int("tasks", len(m.order)), logx.String("tz", m.loc.String()))
}

// Stop halts all triggers, then waits for in-flight executions to finish,
// polling up to the drain ceiling (or ctx cancellation, whichever is first).
// Executions still running past the ceiling are abandoned, not preempted.
// Idempotent; no-op when not running.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	if !m.started || m.stopping {
		m.mu.Unlock()
		return
	}
	m.stopping = true
	m.mu.Unlock()

	start := time.Now()
	for _, name := range m.order {
		m.jobs[name].trig.Stop()
	}

	drained := m.drain(ctx)

	m.mu.Lock()
	m.started = false
	m.stopping = false
	m.mu.Unlock()

	if drained {
		m.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
	} else {
		m.log.Warn("scheduler stopped with executions still in flight",
			logx.Duration("took", time.Since(start)))
	}
}

// drain polls the running flags until clear. Returns false when it gave up
// at the ceiling or on ctx cancellation.
func (m *Manager) drain(ctx context.Context) bool {
	if !m.anyRunning() {
		return true
	}
	deadline := time.NewTimer(m.opts.DrainTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(m.opts.DrainPoll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-tick.C:
			if !m.anyRunning() {
				return true
			}
		}
	}
}

func (m *Manager) anyRunning() bool {
	for _, js := range m.jobs {
		if js.isRunning() {
			return true
		}
	}
	return false
}

// Running reports whether Start has been called without a completed Stop.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// fire is the trigger callback. It must be total: nothing a handler,
// constraint or callback does may escape into the trigger's scheduling loop.
func (m *Manager) fire(js *jobState) {
	scheduledAt := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("panic escaped execution path",
					logx.String("task", js.def.Name()),
					logx.Any("panic", r),
					logx.Stack(string(debug.Stack())))
			}
		}()
		m.execute(context.Background(), js, scheduledAt)
	}()
}

// RunTask invokes a task immediately, bypassing its trigger, and returns the
// finalized execution record. It participates in the same overlap, constraint
// and timeout rules as trigger-driven firings. The only error it returns is
// ErrTaskNotFound (disabled tasks have no job state and are not found).
func (m *Manager) RunTask(ctx context.Context, name string) (*Execution, error) {
	js, ok := m.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, name)
	}
	exec := m.execute(ctx, js, time.Now())
	return exec, nil
}

// NextRun reports the next scheduled instant for name, as computed by the
// bound trigger. ok is false for unknown tasks and for triggers that cannot
// produce a next instant.
func (m *Manager) NextRun(name string) (time.Time, bool) {
	js, ok := m.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	return js.trig.Next()
}

// IsTaskRunning is a point-in-time read of the task's running flag.
// False for unknown tasks.
func (m *Manager) IsTaskRunning(name string) bool {
	js, ok := m.jobs[name]
	if !ok {
		return false
	}
	return js.isRunning()
}

// Tasks lists registered task names in registration order. Disabled
// definitions never appear.
func (m *Manager) Tasks() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Task returns a point-in-time view of one registered task.
func (m *Manager) Task(name string) (TaskInfo, error) {
	js, ok := m.jobs[name]
	if !ok {
		return TaskInfo{}, fmt.Errorf("%w: %q", ErrTaskNotFound, name)
	}
	return m.taskInfo(js), nil
}

func (m *Manager) taskInfo(js *jobState) TaskInfo {
	info := TaskInfo{
		Name:               js.def.Name(),
		Schedule:           js.def.Schedule(),
		Timezone:           js.def.Timezone(),
		Timeout:            js.def.Timeout(),
		WithoutOverlapping: js.def.WithoutOverlapping(),
		Running:            js.isRunning(),
		LastRunAt:          js.lastRun(),
	}
	if next, ok := js.trig.Next(); ok {
		info.NextRun = next
	}
	return info
}

// History returns a snapshot of past executions, optionally filtered to one
// task name. Entries are copies; mutating them cannot affect the buffer.
func (m *Manager) History(name ...string) []Execution {
	if len(name) > 0 && name[0] != "" {
		return m.history.SnapshotTask(name[0])
	}
	return m.history.Snapshot()
}

// Snapshot summarizes the manager state for introspection surfaces.
func (m *Manager) Snapshot() Snapshot {
	snap := Snapshot{
		Running:  m.Running(),
		Timezone: m.loc.String(),
		Tasks:    make([]TaskInfo, 0, len(m.order)),
		History:  m.history.Snapshot(),
	}
	for _, name := range m.order {
		snap.Tasks = append(snap.Tasks, m.taskInfo(m.jobs[name]))
	}
	return snap
}
