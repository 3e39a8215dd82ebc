package watcher

import (
	"sync"
	"testing"
	"time"

	"github.com/openprocurement/bridge-basic/internal/domain"
	"github.com/stretchr/testify/assert"
)

// fakePool is a minimal HealthRanger over an in-memory map, standing in for
// clientpool.Pool in tests.
type fakePool struct {
	mu     sync.Mutex
	health map[string]*domain.ClientHealth
}

func newFakePool() *fakePool {
	return &fakePool{health: make(map[string]*domain.ClientHealth)}
}

func (f *fakePool) RangeHealth(fn func(clientID string, health *domain.ClientHealth)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, h := range f.health {
		fn(id, h)
	}
}

func TestPerformanceWatcher_MarksSlowClientAsBad(t *testing.T) {
	pool := newFakePool()
	window := 20 * time.Second

	fastDurations := func() map[time.Time]time.Duration {
		m := make(map[time.Time]time.Duration)
		now := time.Now().Add(-window)
		for i := 0; i < 5; i++ {
			m[now.Add(time.Duration(i)*time.Millisecond)] = 100 * time.Millisecond
		}
		return m
	}
	slowDurations := func() map[time.Time]time.Duration {
		m := make(map[time.Time]time.Duration)
		now := time.Now().Add(-window)
		for i := 0; i < 5; i++ {
			m[now.Add(time.Duration(i)*time.Millisecond)] = 900 * time.Millisecond
		}
		return m
	}

	pool.health["fast-1"] = &domain.ClientHealth{RequestDurations: fastDurations()}
	pool.health["fast-2"] = &domain.ClientHealth{RequestDurations: fastDurations()}
	pool.health["fast-3"] = &domain.ClientHealth{RequestDurations: fastDurations()}
	pool.health["slow-1"] = &domain.ClientHealth{RequestDurations: slowDurations()}

	w := New(window, 5*time.Second)
	w.Tick(pool)

	assert.True(t, pool.health["slow-1"].DropCookies, "slow client should be marked bad")
	assert.False(t, pool.health["fast-1"].DropCookies, "fast client should not be marked bad")
}

func TestPerformanceWatcher_PrunesStaleSamples(t *testing.T) {
	pool := newFakePool()
	window := 10 * time.Second
	watchInterval := 5 * time.Second

	stale := time.Now().Add(-(window + watchInterval + time.Second))
	fresh := time.Now()

	pool.health["c1"] = &domain.ClientHealth{
		RequestDurations: map[time.Time]time.Duration{
			stale: 50 * time.Millisecond,
			fresh: 50 * time.Millisecond,
		},
	}

	w := New(window, watchInterval)
	w.Tick(pool)

	assert.Len(t, pool.health["c1"].RequestDurations, 1)
	for ts := range pool.health["c1"].RequestDurations {
		assert.True(t, ts.Equal(fresh))
	}
}

func TestPerformanceWatcher_NoSamplesIsNoop(t *testing.T) {
	pool := newFakePool()
	pool.health["idle"] = &domain.ClientHealth{RequestDurations: map[time.Time]time.Duration{}}

	w := New(10*time.Second, 5*time.Second)
	assert.NotPanics(t, func() { w.Tick(pool) })
	assert.False(t, pool.health["idle"].DropCookies)
}
