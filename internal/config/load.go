package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"taskwheel/internal/trigger"
)

// Load reads, decodes and validates the config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(path, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes raw config bytes. path only determines the format.
func Parse(path string, raw []byte) (*Config, error) {
	jb, err := coerceToJSONBytes(path, raw)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules the decoder cannot express: unique task
// names, parseable schedules and durations, resolvable timezones.
func (c *Config) Validate() error {
	if _, err := trigger.LoadLocation(c.Scheduler.Timezone, nil); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	if _, err := ParseDurationField("scheduler.drain_timeout", c.Scheduler.DrainTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.retention", c.Storage.Retention); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "none", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}

	seen := make(map[string]struct{}, len(c.Tasks))
	for i, t := range c.Tasks {
		at := fmt.Sprintf("tasks[%d]", i)
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return fmt.Errorf("%s: name required", at)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%s: duplicate task name %q", at, name)
		}
		seen[name] = struct{}{}

		if strings.TrimSpace(t.Command) == "" {
			return fmt.Errorf("%s (%s): command required", at, name)
		}
		if _, err := trigger.ParseSchedule(t.Schedule); err != nil {
			return fmt.Errorf("%s (%s): %w", at, name, err)
		}
		if t.Timezone != "" {
			if _, err := trigger.LoadLocation(t.Timezone, nil); err != nil {
				return fmt.Errorf("%s (%s): %w", at, name, err)
			}
		}
		if _, err := ParseDurationField(at+".timeout", t.Timeout); err != nil {
			return err
		}
	}
	return nil
}
