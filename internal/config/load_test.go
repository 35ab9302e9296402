package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
log:
  level: debug
scheduler:
  timezone: UTC
  drain_timeout: 10s
storage:
  driver: sqlite
  path: ./audit.db
  retention: 72h
tasks:
  - name: backup:nightly
    schedule: "0 2 * * *"
    command: "/usr/local/bin/backup.sh"
    timeout: 15m
    without_overlap: true
  - name: probe
    schedule: 30s
    command: "true"
    enabled: false
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadValidYAML(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeTemp(t, "cfg.yaml", validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
	if cfg.Scheduler.Timezone != "UTC" {
		t.Fatalf("timezone = %q", cfg.Scheduler.Timezone)
	}
	d, err := cfg.Scheduler.DrainTimeoutOrDefault(30 * time.Second)
	if err != nil || d != 10*time.Second {
		t.Fatalf("drain = %v/%v", d, err)
	}
	if len(cfg.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(cfg.Tasks))
	}
	if !cfg.Tasks[0].IsEnabled() {
		t.Fatal("task without enabled field should default to enabled")
	}
	if cfg.Tasks[1].IsEnabled() {
		t.Fatal("enabled: false not honored")
	}
	if !cfg.Tasks[0].WithoutOverlap {
		t.Fatal("without_overlap not decoded")
	}
}

func TestLoadJSONFormat(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeTemp(t, "cfg.json",
		`{"tasks":[{"name":"j","schedule":"@hourly","command":"date"}]}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Tasks) != 1 || cfg.Tasks[0].Name != "j" {
		t.Fatalf("tasks = %+v", cfg.Tasks)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := Load(writeTemp(t, "cfg.yaml", "bogus_section: true\n"))
	if err == nil || !strings.Contains(err.Error(), "bogus_section") {
		t.Fatalf("err = %v, want unknown field rejection", err)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing command",
			yaml: "tasks:\n  - name: a\n    schedule: '@daily'\n",
			want: "command required",
		},
		{
			name: "duplicate name",
			yaml: "tasks:\n  - {name: a, schedule: '@daily', command: x}\n  - {name: a, schedule: '@daily', command: y}\n",
			want: "duplicate task name",
		},
		{
			name: "bad schedule",
			yaml: "tasks:\n  - {name: a, schedule: garbage, command: x}\n",
			want: "invalid schedule",
		},
		{
			name: "bad timezone",
			yaml: "scheduler:\n  timezone: Nowhere/Null\n",
			want: "timezone",
		},
		{
			name: "bad driver",
			yaml: "storage:\n  driver: postgres\n",
			want: "unknown driver",
		},
		{
			name: "bad timeout",
			yaml: "tasks:\n  - {name: a, schedule: '@daily', command: x, timeout: soon}\n",
			want: "invalid duration",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, "cfg.yaml", tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want substring %q", err, tt.want)
			}
		})
	}
}
