// Package watcher implements the performance watcher: the tick that prunes
// stale latency samples, computes per-client and global statistics, and
// flags degraded clients for cookie rotation.
package watcher

import (
	"log/slog"
	"math"
	"time"

	"github.com/openprocurement/bridge-basic/internal/domain"
	"github.com/openprocurement/bridge-basic/internal/observability"
)

// HealthRanger is the subset of clientpool.Pool the watcher needs: iterate
// every client's health record under the pool's lock.
type HealthRanger interface {
	RangeHealth(fn func(clientID string, health *domain.ClientHealth))
}

// PerformanceWatcher runs the perfomance_watcher tick: prune stale samples,
// compute each client's average duration, compute global stddev, and mark
// slow or throttled clients for cookie drop.
type PerformanceWatcher struct {
	PerfomanceWindow time.Duration
	WatchInterval    time.Duration
}

// New builds a PerformanceWatcher for the given window and tick interval
// (both already expressed as time.Duration, i.e. config seconds * time.Second).
func New(perfomanceWindow, watchInterval time.Duration) *PerformanceWatcher {
	return &PerformanceWatcher{PerfomanceWindow: perfomanceWindow, WatchInterval: watchInterval}
}

// Tick runs one pass of prune → per-client mean → global stddev → classify →
// report over every client health record the pool exposes.
func (w *PerformanceWatcher) Tick(pool HealthRanger) {
	now := time.Now()
	pruneCutoff := now.Add(-(w.PerfomanceWindow + w.WatchInterval))
	growCutoff := now.Add(-w.PerfomanceWindow)

	var durations []float64
	pool.RangeHealth(func(_ string, h *domain.ClientHealth) {
		for ts := range h.RequestDurations {
			if ts.Before(pruneCutoff) {
				delete(h.RequestDurations, ts)
			}
		}

		if len(h.RequestDurations) == 0 {
			return
		}

		if oldestAtLeast(h.RequestDurations, growCutoff) {
			h.Grown = true
		}

		var sum time.Duration
		for _, d := range h.RequestDurations {
			sum += d
		}
		avg := round3(sum.Seconds() / float64(len(h.RequestDurations)))
		h.AvgDuration = avg
		durations = append(durations, avg)
	})

	avgDuration, stDev := averageAndStdDev(durations)
	dev := round3(stDev + avgDuration)

	var minAvg, maxAvg float64
	if len(durations) > 0 {
		minAvg = minOf(durations) * 1000
		maxAvg = maxOf(durations) * 1000
	}

	slog.Info("performance watcher tick",
		slog.Float64("requests_stdev_s", stDev),
		slog.Float64("requests_dev_ms", dev*1000),
		slog.Float64("requests_min_avg_ms", minAvg),
		slog.Float64("requests_max_avg_ms", maxAvg),
		slog.Float64("requests_avg_s", avgDuration),
	)
	observability.SetPerformanceGauges(dev*1000, minAvg, maxAvg, avgDuration*1000)

	w.markBadClients(pool, dev)
}

// markBadClients flags a client for cookie rotation when its grown average
// exceeds the global dev threshold, or when it already carries a nonzero
// backoff interval but now runs faster than dev (source: _mark_bad_clients).
func (w *PerformanceWatcher) markBadClients(pool HealthRanger, dev float64) {
	pool.RangeHealth(func(clientID string, h *domain.ClientHealth) {
		switch {
		case h.Grown && h.AvgDuration > dev:
			h.DropCookies = true
			slog.Debug("marking client as bad: slow", slog.String("client_id", clientID), slog.Float64("avg_duration_s", h.AvgDuration))
		case h.AvgDuration < dev && h.RequestInterval > 0:
			h.DropCookies = true
			slog.Debug("marking client as bad: throttled", slog.String("client_id", clientID), slog.Float64("request_interval_s", h.RequestInterval))
		}
	})
}

func oldestAtLeast(durations map[time.Time]time.Duration, cutoff time.Time) bool {
	first := true
	var oldest time.Time
	for ts := range durations {
		if first || ts.Before(oldest) {
			oldest = ts
			first = false
		}
	}
	return !first && !oldest.After(cutoff)
}

func averageAndStdDev(values []float64) (avg, stDev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg = sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - avg) * (v - avg)
	}
	variance /= float64(len(values))

	return round3(avg), round3(math.Sqrt(variance))
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
