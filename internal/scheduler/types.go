package scheduler

import (
	"time"

	"golang.org/x/time/rate"

	"taskwheel/internal/task"
	"taskwheel/internal/trigger"
	"taskwheel/pkg/logx"
)

// Status is the lifecycle state of one execution attempt.
// running is the only non-terminal status; an Execution transitions exactly
// once into one of the terminal states and is never mutated afterwards.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool { return s != StatusRunning }

// Execution is the immutable record of one concrete attempt to run a task.
type Execution struct {
	ID   string
	Task string

	ScheduledAt time.Time
	StartedAt   time.Time
	CompletedAt time.Time // zero while running
	Duration    time.Duration

	Status Status
	Error  string // non-empty only for failed
	Reason string // non-empty only for skipped

	// seq orders executions across tasks in the merged history snapshot.
	seq uint64
}

// Hooks are manager-level notification slots shared across all tasks,
// complementing the per-task callbacks on a task.Definition. Each slot is
// optional, called at most once per execution attempt, and panic-isolated.
type Hooks struct {
	OnTaskStart    func(run task.Context)
	OnTaskComplete func(run task.Context, took time.Duration)
	OnTaskError    func(run task.Context, err error, took time.Duration)
	OnTaskSkip     func(run task.Context, reason string)

	// OnExecutionFinalized fires once per attempt with the terminal record,
	// after it has been appended to history. Audit sinks hang off this.
	OnExecutionFinalized func(exec Execution)
}

// Options configure a Manager.
type Options struct {
	// Timezone is the default IANA zone for tasks that do not set their own.
	// Empty means time.Local.
	Timezone string

	Log   logx.Logger
	Hooks Hooks

	// TriggerFactory binds schedules to triggers. Defaults to the cron
	// implementation; tests inject fakes here.
	TriggerFactory trigger.Factory

	// HistoryCap bounds history entries kept per task. Defaults to 100.
	HistoryCap int

	// DrainTimeout is the ceiling Stop waits for in-flight executions.
	// Defaults to 30s.
	DrainTimeout time.Duration

	// DrainPoll is the interval at which Stop re-checks in-flight work.
	// Defaults to 100ms.
	DrainPoll time.Duration
}

const (
	defaultHistoryCap   = 100
	defaultDrainTimeout = 30 * time.Second
	defaultDrainPoll    = 100 * time.Millisecond

	// Repeated failures of a fast-interval task are logged at warn no more
	// than failLogBurst at once and one per failLogEvery after that; the
	// rest drop to debug.
	failLogEvery = time.Minute
	failLogBurst = 3
)

func (o Options) withDefaults() Options {
	if o.TriggerFactory == nil {
		o.TriggerFactory = trigger.NewCronFactory()
	}
	if o.HistoryCap <= 0 {
		o.HistoryCap = defaultHistoryCap
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = defaultDrainTimeout
	}
	if o.DrainPoll <= 0 {
		o.DrainPoll = defaultDrainPoll
	}
	if o.Log.IsZero() {
		o.Log = logx.Nop()
	}
	return o
}

func newFailLogLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(failLogEvery), failLogBurst)
}

// TaskInfo is a point-in-time view of one registered task.
type TaskInfo struct {
	Name               string
	Schedule           string
	Timezone           string
	Timeout            time.Duration
	WithoutOverlapping bool

	Running   bool
	LastRunAt time.Time
	NextRun   time.Time // zero when the trigger cannot compute one
}

// Snapshot summarizes the manager for introspection surfaces.
type Snapshot struct {
	Running  bool
	Timezone string
	Tasks    []TaskInfo
	History  []Execution
}
