package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/openprocurement/bridge-basic/internal/domain"
	"github.com/openprocurement/bridge-basic/internal/observability"
	"github.com/openprocurement/bridge-basic/internal/watcher"
)

// Task is the minimal surface Supervisor needs from FeederTask/FilterTask:
// a long-running Run that returns when the task dies.
type Task interface {
	Run(ctx context.Context) error
}

// ClientPool is the subset of clientpool.Pool the supervisor needs to drive
// the watcher tick and report the live-client gauge.
type ClientPool interface {
	watcher.HealthRanger
	LiveCount() int
}

// WatcherTicker is the subset of watcher.PerformanceWatcher the supervisor drives.
type WatcherTicker interface {
	Tick(pool watcher.HealthRanger)
}

// PoolTopper is the subset of WorkerPool the supervisor tops up every tick.
type PoolTopper interface {
	Size() int
	SpawnOne(ctx context.Context) error
}

// Supervisor is the top-level task: it drives the watcher tick, restarts a
// dead feeder or filter task, tops up both worker pools to their configured
// minimums, and reports queue-depth and live-client gauges. Grounded on
// spec.md §4.I's watch_interval tick and on the teacher's cmd/worker/main.go
// composition-root shape (construct, start background goroutines, report).
type Supervisor struct {
	Watcher    WatcherTicker
	ClientPool ClientPool

	MainPool        PoolTopper
	RetryPool       PoolTopper
	WorkersMin      int
	RetryWorkersMin int

	InputQueue domain.QueueFeed
	MainQueue  domain.QueueFeed
	RetryQueue domain.QueueFeed

	Feeder Task
	// Filter is nil when no filter plugin is configured; the Supervisor
	// then never spawns a filter task, matching spec.md §4.E's aliasing.
	Filter Task

	TickInterval time.Duration

	feederRunning atomic.Bool
	filterRunning atomic.Bool
}

// Run starts the feeder (and filter, if configured) and then drives the
// watch_interval tick until ctx is canceled.
func (s *Supervisor) Run(ctx context.Context) {
	s.ensureFeeder(ctx)
	s.ensureFilter(ctx)

	ticker := time.NewTicker(s.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one supervisor pass: watcher tick, respawn dead tasks, top up
// both pools, report gauges.
func (s *Supervisor) Tick(ctx context.Context) {
	s.Watcher.Tick(s.ClientPool)

	s.ensureFeeder(ctx)
	s.ensureFilter(ctx)

	s.topUp(ctx, s.MainPool, s.WorkersMin, "main")
	s.topUp(ctx, s.RetryPool, s.RetryWorkersMin, "retry")

	observability.SetQueueGauges(s.InputQueue.QSize(), s.MainQueue.QSize(), s.RetryQueue.QSize())
	observability.SetPoolGauges(s.MainPool.Size(), s.RetryPool.Size(), s.ClientPool.LiveCount())
}

func (s *Supervisor) ensureFeeder(ctx context.Context) {
	if s.Feeder == nil || !s.feederRunning.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.feederRunning.Store(false)
		if err := s.Feeder.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("supervisor: feeder task died, will respawn next tick", slog.String("error", err.Error()))
		}
	}()
}

func (s *Supervisor) ensureFilter(ctx context.Context) {
	if s.Filter == nil || !s.filterRunning.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.filterRunning.Store(false)
		if err := s.Filter.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("supervisor: filter task died, will respawn next tick", slog.String("error", err.Error()))
		}
	}()
}

func (s *Supervisor) topUp(ctx context.Context, pool PoolTopper, min int, label string) {
	for pool.Size() < min {
		if err := pool.SpawnOne(ctx); err != nil {
			slog.Error("supervisor: failed to top up pool", slog.String("pool", label), slog.String("error", err.Error()))
			return
		}
	}
}
