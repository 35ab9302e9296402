package task

import (
	"context"
	"testing"
	"time"
)

func nop(context.Context, Context) error { return nil }

func TestNewValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		taskName string
		schedule string
		handler  Handler
		opts     []Option
		wantErr  bool
	}{
		{name: "ok", taskName: "backup", schedule: "@daily", handler: nop},
		{name: "empty name", taskName: "  ", schedule: "@daily", handler: nop, wantErr: true},
		{name: "empty schedule", taskName: "backup", schedule: "", handler: nop, wantErr: true},
		{name: "nil handler", taskName: "backup", schedule: "@daily", handler: nil, wantErr: true},
		{name: "negative timeout", taskName: "backup", schedule: "@daily", handler: nop,
			opts: []Option{WithTimeout(-time.Second)}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.taskName, tt.schedule, tt.handler, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptionsApplied(t *testing.T) {
	t.Parallel()
	def, err := New("nightly", "0 2 * * *", nop,
		WithTimeout(5*time.Minute),
		WithoutOverlap(),
		WithTimezone(" Europe/Berlin "),
		WithConstraint("window", func(Context) (bool, error) { return true, nil }),
		Disabled(),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if def.Name() != "nightly" || def.Schedule() != "0 2 * * *" {
		t.Fatalf("identity = %s/%s", def.Name(), def.Schedule())
	}
	if def.Timeout() != 5*time.Minute {
		t.Fatalf("Timeout = %v", def.Timeout())
	}
	if !def.WithoutOverlapping() {
		t.Fatal("WithoutOverlapping not set")
	}
	if def.Timezone() != "Europe/Berlin" {
		t.Fatalf("Timezone = %q, want trimmed value", def.Timezone())
	}
	if def.Enabled() {
		t.Fatal("Disabled() did not apply")
	}
	if cs := def.Constraints(); len(cs) != 1 || cs[0].Name != "window" {
		t.Fatalf("Constraints = %+v", cs)
	}
}

func TestConstraintsCopied(t *testing.T) {
	t.Parallel()
	def, err := New("n", "@daily", nop,
		WithConstraint("a", func(Context) (bool, error) { return true, nil }),
		WithConstraint("b", func(Context) (bool, error) { return true, nil }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cs := def.Constraints()
	cs[0] = Constraint{Name: "tampered"}
	if def.Constraints()[0].Name != "a" {
		t.Fatal("mutating the returned slice leaked into the definition")
	}
}

func TestContextFirstRun(t *testing.T) {
	t.Parallel()
	if !(Context{}).FirstRun() {
		t.Fatal("zero LastRunAt should report first run")
	}
	c := Context{LastRunAt: time.Now()}
	if c.FirstRun() {
		t.Fatal("non-zero LastRunAt should not report first run")
	}
}

func TestMustNewPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Fatal("MustNew did not panic on invalid input")
		}
	}()
	MustNew("", "@daily", nop)
}
