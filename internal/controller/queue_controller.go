// Package controller implements the queue controller: the tick that grows
// or shrinks the main worker pool based on main-queue fill percentage.
package controller

import (
	"context"
	"log/slog"
	"time"
)

// WorkerPool is the subset of pipeline.WorkerPool the controller drives.
type WorkerPool interface {
	FreeCount() int
	Size() int
	SpawnOne(ctx context.Context) error
	ShutdownOne(ctx context.Context) error
}

// QueueSize reports the current depth of the main queue.
type QueueSize interface {
	QSize() int
}

// Controller runs the queues_controller tick: scale the main worker pool by
// at most one worker per tick based on main-queue fill against the
// configured thresholds.
type Controller struct {
	MainQueue    QueueSize
	MainCapacity int
	WorkersMin   int
	IncThreshold float64
	DecThreshold float64
	TickInterval time.Duration
}

// New builds a Controller. mainCapacity is the main queue's configured size
// (resource_items_queue_size); a value <= 0 disables fill-based scaling
// since percentage-of-capacity is undefined for an unbounded queue.
func New(mainQueue QueueSize, mainCapacity, workersMin int, incThreshold, decThreshold float64, tickInterval time.Duration) *Controller {
	return &Controller{
		MainQueue:    mainQueue,
		MainCapacity: mainCapacity,
		WorkersMin:   workersMin,
		IncThreshold: incThreshold,
		DecThreshold: decThreshold,
		TickInterval: tickInterval,
	}
}

// Run loops Tick every TickInterval until ctx is canceled.
func (c *Controller) Run(ctx context.Context, pool WorkerPool) {
	ticker := time.NewTicker(c.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(ctx, pool)
		}
	}
}

// Tick runs a single scale decision, at most one worker spawned or retired.
// It looks only at the main queue; the retry-queue fill percentage is
// available separately via RetryFillPercent.
func (c *Controller) Tick(ctx context.Context, pool WorkerPool) {
	if c.MainCapacity <= 0 {
		return
	}

	fill := float64(c.MainQueue.QSize()) / (float64(c.MainCapacity) / 100)

	switch {
	case pool.FreeCount() > 0 && fill > c.IncThreshold:
		if err := pool.SpawnOne(ctx); err != nil {
			slog.Error("queue controller: failed to spawn worker", slog.String("error", err.Error()))
			return
		}
		slog.Info("queue controller: create main queue worker", slog.Float64("fill_percent", fill))
	case fill < c.DecThreshold && pool.Size() > c.WorkersMin:
		if err := pool.ShutdownOne(ctx); err != nil {
			slog.Error("queue controller: failed to shut down worker", slog.String("error", err.Error()))
			return
		}
		slog.Info("queue controller: kill main queue worker", slog.Float64("fill_percent", fill))
	}
}

// RetryFillPercent reproduces the original's
// `retry_queue.qsize() / float(retry_queue_size) / 100` computation for the
// retry queue, preserving its double division (the result is 10,000x
// smaller than an actual percentage) rather than fixing it. Nothing in the
// bridge consumes this value as a real percentage.
func RetryFillPercent(retryQueueSize int, retryCapacity int) float64 {
	if retryCapacity <= 0 {
		return 0
	}
	return float64(retryQueueSize) / float64(retryCapacity) / 100
}

// MainFillPercent mirrors the original's correctly-computed main-queue fill
// percentage: qsize() / (capacity/100).
func MainFillPercent(mainQueueSize int, mainCapacity int) float64 {
	if mainCapacity <= 0 {
		return 0
	}
	return float64(mainQueueSize) / (float64(mainCapacity) / 100)
}
