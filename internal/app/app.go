// Package app assembles the daemon: configuration, logging, the optional
// execution audit store and the scheduling manager.
package app

import (
	"context"
	"sync"
	"time"

	"taskwheel/internal/config"
	"taskwheel/internal/scheduler"
	"taskwheel/internal/storage"
	"taskwheel/pkg/logx"
)

// auditAppendTimeout bounds one audit write so a wedged disk cannot stall
// the scheduler's hook path.
const auditAppendTimeout = 5 * time.Second

type App struct {
	cfgPath string

	log  logx.Logger
	logs *logx.Service

	// storeMu serializes audit writes against teardown; the scheduler's
	// drain already orders hooks before Stop returns, but a trigger firing
	// skipped mid-shutdown delivers its hook outside the drain window.
	storeMu sync.Mutex
	store   storage.Store

	mgr     *scheduler.Manager
	watcher *config.Watcher

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(cfg.Log.Logx())
	log = log.With(logx.String("comp", "app"))

	a := &App{
		cfgPath: cfgPath,
		log:     log,
		logs:    logSvc,
	}

	// Storage (optional).
	sc, err := mapStorageConfig(cfg.Storage)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	a.store = store
	if store != nil {
		log.Info("execution audit enabled",
			logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	defs, err := buildTasks(cfg.Tasks)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}

	drain, err := cfg.Scheduler.DrainTimeoutOrDefault(0)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}

	mgr, err := scheduler.New(defs, scheduler.Options{
		Timezone:     cfg.Scheduler.Timezone,
		Log:          log.With(logx.String("comp", "scheduler")),
		DrainTimeout: drain,
		Hooks: scheduler.Hooks{
			OnExecutionFinalized: a.auditExecution,
		},
	})
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}
	a.mgr = mgr

	a.watcher = config.NewWatcher(cfgPath, log.With(logx.String("comp", "config")), a.onConfigChange)
	a.watcher.Commit(cfg)

	return a, nil
}

// Start launches the scheduler and the config watcher. It does not block.
func (a *App) Start(ctx context.Context) error {
	a.mgr.Start()
	a.log.Info("scheduler started", logx.Int("tasks", len(a.mgr.Tasks())))

	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	a.watchDone = make(chan struct{})
	go func() {
		defer close(a.watchDone)
		if err := a.watcher.Run(wctx); err != nil {
			a.log.Warn("config watcher stopped", logx.Err(err))
		}
	}()
	return nil
}

// Stop drains in-flight executions and releases resources. ctx bounds the
// drain on top of the configured ceiling.
func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
		<-a.watchDone
	}

	a.mgr.Stop(ctx)
	a.log.Info("scheduler stopped")

	return a.closeResources()
}

func (a *App) Manager() *scheduler.Manager { return a.mgr }

func (a *App) Logger() logx.Logger { return a.log }

func (a *App) closeResources() error {
	var first error
	a.storeMu.Lock()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			first = err
		}
		a.store = nil
	}
	a.storeMu.Unlock()
	if err := a.logs.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// auditExecution mirrors a finalized execution into the audit store.
func (a *App) auditExecution(exec scheduler.Execution) {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()
	if a.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), auditAppendTimeout)
	defer cancel()
	err := a.store.AppendExecution(ctx, storage.Record{
		ID:          exec.ID,
		Task:        exec.Task,
		Status:      string(exec.Status),
		ScheduledAt: exec.ScheduledAt,
		StartedAt:   exec.StartedAt,
		Duration:    exec.Duration,
		Error:       exec.Error,
		Reason:      exec.Reason,
	})
	if err != nil {
		a.log.Warn("audit write failed",
			logx.String("task", exec.Task), logx.Err(err))
	}
}

// onConfigChange applies the hot-reloadable subset of the configuration.
// Task and storage changes need a restart; only logging is applied live.
func (a *App) onConfigChange(cfg *config.Config) {
	a.logs.Apply(cfg.Log.Logx())
	a.log.Info("logging config reloaded", logx.String("level", cfg.Log.Level))
}

func mapStorageConfig(sc config.StorageConfig) (storage.Config, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 0)
	if err != nil {
		return storage.Config{}, err
	}
	retention, err := config.ParseDurationOrDefault("storage.retention", sc.Retention, 0)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      sc.Driver,
		Path:        sc.Path,
		BusyTimeout: busy,
		Retention:   retention,
	}, nil
}
