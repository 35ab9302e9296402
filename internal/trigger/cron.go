package trigger

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser allows both 5-field and 6-field (with seconds) cron specs plus
// @descriptors, matching the grammar documented in ParseSchedule.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Cron is the production Trigger: one robfig/cron runner carrying a single
// entry for one task's recurrence rule.
type Cron struct {
	mu      sync.Mutex
	c       *cron.Cron
	sched   cron.Schedule
	loc     *time.Location
	running bool
}

// NewCron builds a trigger from any schedule form accepted by ParseSchedule.
// The trigger is created stopped; fire runs on the cron goroutine, so it must
// not block for long and must not panic.
func NewCron(schedule string, loc *time.Location, fire func()) (*Cron, error) {
	if fire == nil {
		return nil, fmt.Errorf("trigger: fire callback required")
	}
	if loc == nil {
		loc = time.Local
	}
	spec, err := ParseSchedule(schedule)
	if err != nil {
		return nil, err
	}
	sched, err := cronParser.Parse(spec.Cron)
	if err != nil {
		return nil, fmt.Errorf("trigger: parse %q: %w", spec.Cron, err)
	}

	t := &Cron{sched: sched, loc: loc}
	c := cron.New(cron.WithParser(cronParser), cron.WithLocation(loc))
	c.Schedule(sched, cron.FuncJob(fire))
	t.c = c
	return t, nil
}

// NewCronFactory returns a Factory producing Cron triggers. It is the
// scheduler's default.
func NewCronFactory() Factory {
	return func(schedule string, loc *time.Location, fire func()) (Trigger, error) {
		return NewCron(schedule, loc, fire)
	}
}

func (t *Cron) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.c.Start()
}

func (t *Cron) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	// Stop halts scheduling only; a fire already in progress keeps running.
	<-t.c.Stop().Done()
}

// Next computes the next scheduled instant from the recurrence rule itself,
// so it stays accurate whether or not the trigger is running.
func (t *Cron) Next() (time.Time, bool) {
	t.mu.Lock()
	loc := t.loc
	sched := t.sched
	t.mu.Unlock()

	next := sched.Next(time.Now().In(loc))
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}
