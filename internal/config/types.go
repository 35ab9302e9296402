package config

import (
	"time"

	"taskwheel/pkg/logx"
)

// Config is the daemon's root configuration. Files may be YAML or JSON;
// unknown fields are rejected.
type Config struct {
	Log       LogConfig       `json:"log"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Storage   StorageConfig   `json:"storage"`
	Tasks     []TaskConfig    `json:"tasks"`
}

type LogConfig struct {
	Level   string `json:"level"`
	Console *bool  `json:"console"`
	File    struct {
		Enabled bool   `json:"enabled"`
		Path    string `json:"path"`
	} `json:"file"`
}

// Logx translates the section into the logging service's own config,
// defaulting console output on.
func (l LogConfig) Logx() logx.Config {
	console := true
	if l.Console != nil {
		console = *l.Console
	}
	return logx.Config{
		Level:   l.Level,
		Console: console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
	}
}

type SchedulerConfig struct {
	// Timezone is the default IANA zone for tasks without their own.
	Timezone string `json:"timezone"`

	// DrainTimeout caps how long Stop waits for in-flight tasks ("30s").
	DrainTimeout string `json:"drain_timeout"`
}

type StorageConfig struct {
	// Driver: "none" (default) disables persistence; "sqlite" keeps an
	// execution audit trail on disk.
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout"`

	// Retention bounds how long audited executions are kept ("168h").
	Retention string `json:"retention"`
}

// TaskConfig declares one command task.
type TaskConfig struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Timezone string `json:"timezone"`
	Command  string `json:"command"`

	Timeout        string `json:"timeout"`
	WithoutOverlap bool   `json:"without_overlap"`

	// Enabled defaults to true when omitted.
	Enabled *bool `json:"enabled"`
}

func (t TaskConfig) IsEnabled() bool { return t.Enabled == nil || *t.Enabled }

// DrainTimeoutOrDefault parses the drain ceiling, falling back to def.
func (s SchedulerConfig) DrainTimeoutOrDefault(def time.Duration) (time.Duration, error) {
	return ParseDurationOrDefault("scheduler.drain_timeout", s.DrainTimeout, def)
}
