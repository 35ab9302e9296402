package app

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"taskwheel/internal/config"
	"taskwheel/internal/task"
)

// maxOutputInError caps how much captured command output is folded into a
// failure message.
const maxOutputInError = 512

// buildTasks turns config entries into task definitions. The schedules were
// already validated during config parsing; definition construction can still
// fail on empty fields.
func buildTasks(tcs []config.TaskConfig) ([]*task.Definition, error) {
	defs := make([]*task.Definition, 0, len(tcs))
	for _, tc := range tcs {
		def, err := buildTask(tc)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", tc.Name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func buildTask(tc config.TaskConfig) (*task.Definition, error) {
	timeout, err := config.ParseDurationOrDefault("timeout", tc.Timeout, 0)
	if err != nil {
		return nil, err
	}

	var opts []task.Option
	if tc.Timezone != "" {
		opts = append(opts, task.WithTimezone(tc.Timezone))
	}
	if timeout > 0 {
		opts = append(opts, task.WithTimeout(timeout))
	}
	if tc.WithoutOverlap {
		opts = append(opts, task.WithoutOverlap())
	}
	if !tc.IsEnabled() {
		opts = append(opts, task.Disabled())
	}

	return task.New(tc.Name, tc.Schedule, commandHandler(tc.Command), opts...)
}

// commandHandler wraps a shell command line as a task handler. The command
// inherits the run context, so a timed-out task has its process killed at
// the deadline.
func commandHandler(command string) task.Handler {
	return func(ctx context.Context, run task.Context) error {
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		out, err := cmd.CombinedOutput()
		if err != nil {
			if trimmed := bytes.TrimSpace(out); len(trimmed) > 0 {
				if len(trimmed) > maxOutputInError {
					trimmed = trimmed[:maxOutputInError]
				}
				return fmt.Errorf("%w: %s", err, trimmed)
			}
			return err
		}
		return nil
	}
}
