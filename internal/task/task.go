package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Handler is the unit of work for one task.
//
// The ctx carries the per-run timeout deadline (if the task has one) so
// well-behaved handlers can abort cooperatively. The scheduler stops waiting
// at the deadline either way; a handler that ignores ctx keeps running in the
// background and its eventual result is discarded.
type Handler func(ctx context.Context, run Context) error

// Callbacks are per-task notification hooks.
//
// Each slot is optional and called at most once per execution attempt.
// Panics inside a callback are isolated by the scheduler and never alter the
// outcome of the execution they observe.
type Callbacks struct {
	OnSuccess func(run Context, took time.Duration)
	OnFailure func(run Context, err error, took time.Duration)
	OnSkip    func(run Context, reason string)
}

// Definition describes one recurring job. Immutable after New().
type Definition struct {
	name     string
	schedule string
	timezone string

	handler Handler

	withoutOverlapping bool
	timeout            time.Duration
	constraints        []Constraint
	callbacks          Callbacks
	enabled            bool
}

// Option mutates a Definition during New().
type Option func(*Definition)

// WithTimeout bounds the handler's wall time. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(def *Definition) { def.timeout = d }
}

// WithoutOverlap skips a firing while a previous run of the same task is
// still in progress.
func WithoutOverlap() Option {
	return func(def *Definition) { def.withoutOverlapping = true }
}

// WithTimezone overrides the scheduler's default timezone for this task.
func WithTimezone(tz string) Option {
	return func(def *Definition) { def.timezone = strings.TrimSpace(tz) }
}

// WithConstraint appends a named run predicate. Constraints are evaluated in
// the order they were added.
func WithConstraint(name string, check func(run Context) (bool, error)) Option {
	return func(def *Definition) {
		def.constraints = append(def.constraints, Constraint{Name: name, Check: check})
	}
}

// WithConstraints appends pre-built constraints in order.
func WithConstraints(cs ...Constraint) Option {
	return func(def *Definition) { def.constraints = append(def.constraints, cs...) }
}

// WithCallbacks sets the per-task notification hooks.
func WithCallbacks(cb Callbacks) Option {
	return func(def *Definition) { def.callbacks = cb }
}

// Disabled registers the task without ever scheduling it.
func Disabled() Option {
	return func(def *Definition) { def.enabled = false }
}

// New builds an immutable task definition.
//
// name must be non-empty and unique per scheduler; schedule is any form
// accepted by trigger.ParseSchedule.
func New(name, schedule string, handler Handler, opts ...Option) (*Definition, error) {
	def := &Definition{
		name:     strings.TrimSpace(name),
		schedule: strings.TrimSpace(schedule),
		handler:  handler,
		enabled:  true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(def)
		}
	}

	if def.name == "" {
		return nil, errors.New("task name required")
	}
	if def.schedule == "" {
		return nil, fmt.Errorf("task %q: schedule required", def.name)
	}
	if def.handler == nil {
		return nil, fmt.Errorf("task %q: handler required", def.name)
	}
	if def.timeout < 0 {
		return nil, fmt.Errorf("task %q: timeout must be >= 0", def.name)
	}
	return def, nil
}

// MustNew is New, panicking on invalid input. Intended for static task tables.
func MustNew(name, schedule string, handler Handler, opts ...Option) *Definition {
	def, err := New(name, schedule, handler, opts...)
	if err != nil {
		panic(err)
	}
	return def
}

func (d *Definition) Name() string     { return d.name }
func (d *Definition) Schedule() string { return d.schedule }
func (d *Definition) Timezone() string { return d.timezone }
func (d *Definition) Handler() Handler { return d.handler }

func (d *Definition) WithoutOverlapping() bool { return d.withoutOverlapping }
func (d *Definition) Timeout() time.Duration   { return d.timeout }
func (d *Definition) Enabled() bool            { return d.enabled }
func (d *Definition) Callbacks() Callbacks     { return d.callbacks }

// Constraints returns the ordered predicate list. The returned slice is a
// copy; callers cannot mutate the definition through it.
func (d *Definition) Constraints() []Constraint {
	if len(d.constraints) == 0 {
		return nil
	}
	out := make([]Constraint, len(d.constraints))
	copy(out, d.constraints)
	return out
}
