package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"taskwheel/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q): %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) returned a store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "audit.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	now := time.Now()
	records := []Record{
		{ID: "1", Task: "backup", Status: "completed", ScheduledAt: now, StartedAt: now, Duration: 2 * time.Second},
		{ID: "2", Task: "backup", Status: "failed", ScheduledAt: now, StartedAt: now.Add(time.Minute), Error: "disk full"},
		{ID: "3", Task: "probe", Status: "skipped", ScheduledAt: now, StartedAt: now.Add(2 * time.Minute), Reason: "still running"},
	}
	for _, r := range records {
		if err := st.AppendExecution(ctx, r); err != nil {
			t.Fatalf("AppendExecution(%s): %v", r.ID, err)
		}
	}

	got, err := st.RecentExecutions(ctx, "backup", 10)
	if err != nil {
		t.Fatalf("RecentExecutions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Most recent first.
	if got[0].ID != "2" || got[1].ID != "1" {
		t.Fatalf("order = %s,%s, want 2,1", got[0].ID, got[1].ID)
	}
	if got[0].Error != "disk full" {
		t.Fatalf("Error = %q", got[0].Error)
	}
	if got[1].Duration != 2*time.Second {
		t.Fatalf("Duration = %v", got[1].Duration)
	}

	all, err := st.RecentExecutions(ctx, "", 10)
	if err != nil {
		t.Fatalf("RecentExecutions(all): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all len = %d, want 3", len(all))
	}
	if all[0].Reason != "still running" {
		t.Fatalf("Reason = %q", all[0].Reason)
	}
}
