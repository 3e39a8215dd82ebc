package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprocurement/bridge-basic/internal/domain"
	"github.com/openprocurement/bridge-basic/internal/watcher"
)

type fakeWatcherTicker struct{ ticks int32 }

func (f *fakeWatcherTicker) Tick(watcher.HealthRanger) { atomic.AddInt32(&f.ticks, 1) }

type fakeClientPool struct{ liveCount int }

func (f fakeClientPool) RangeHealth(fn func(clientID string, health *domain.ClientHealth)) {}
func (f fakeClientPool) LiveCount() int                                                    { return f.liveCount }

type fakePoolTopper struct {
	size int32
	min  int32
}

func (p *fakePoolTopper) Size() int { return int(atomic.LoadInt32(&p.size)) }
func (p *fakePoolTopper) SpawnOne(ctx context.Context) error {
	atomic.AddInt32(&p.size, 1)
	return nil
}

type fakeQueueFeed struct{ size int }

func (f fakeQueueFeed) Put(ctx context.Context, priority int, item domain.ResourceItem) error {
	return nil
}
func (f fakeQueueFeed) Get(ctx context.Context) (domain.QueueElement, error) {
	return domain.QueueElement{}, nil
}
func (f fakeQueueFeed) QSize() int { return f.size }

type fakeTask struct {
	calls int32
	err   error
	block chan struct{}
}

func (t *fakeTask) Run(ctx context.Context) error {
	atomic.AddInt32(&t.calls, 1)
	if t.block != nil {
		<-t.block
	}
	return t.err
}

func newSupervisor() (*Supervisor, *fakeWatcherTicker, *fakePoolTopper, *fakePoolTopper) {
	w := &fakeWatcherTicker{}
	mainPool := &fakePoolTopper{size: 1}
	retryPool := &fakePoolTopper{size: 1}
	s := &Supervisor{
		Watcher:         w,
		ClientPool:      fakeClientPool{liveCount: 3},
		MainPool:        mainPool,
		RetryPool:       retryPool,
		WorkersMin:      3,
		RetryWorkersMin: 2,
		InputQueue:      fakeQueueFeed{size: 1},
		MainQueue:       fakeQueueFeed{size: 2},
		RetryQueue:      fakeQueueFeed{size: 3},
		TickInterval:    time.Millisecond,
	}
	return s, w, mainPool, retryPool
}

func TestSupervisor_Tick_DrivesWatcherAndTopsUpPools(t *testing.T) {
	s, w, mainPool, retryPool := newSupervisor()

	s.Tick(context.Background())

	assert.Equal(t, int32(1), w.ticks)
	assert.Equal(t, 3, mainPool.Size())
	assert.Equal(t, 2, retryPool.Size())
}

func TestSupervisor_EnsureFeeder_RespawnsAfterDeath(t *testing.T) {
	s, _, _, _ := newSupervisor()
	task := &fakeTask{err: errors.New("upstream dropped connection")}
	s.Feeder = task

	s.ensureFeeder(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&task.calls) == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !s.feederRunning.Load() }, time.Second, time.Millisecond)

	s.ensureFeeder(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&task.calls) == 2 }, time.Second, time.Millisecond)
}

func TestSupervisor_EnsureFeeder_DoesNotDoubleSpawnWhileRunning(t *testing.T) {
	s, _, _, _ := newSupervisor()
	task := &fakeTask{block: make(chan struct{})}
	s.Feeder = task

	s.ensureFeeder(context.Background())
	s.ensureFeeder(context.Background())
	s.ensureFeeder(context.Background())

	close(task.block)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&task.calls) == 1 }, time.Second, time.Millisecond)
}

func TestSupervisor_EnsureFilter_NilFilterIsNoop(t *testing.T) {
	s, _, _, _ := newSupervisor()
	s.ensureFilter(context.Background())
	assert.False(t, s.filterRunning.Load())
}

func TestSupervisor_Run_StopsOnContextCancel(t *testing.T) {
	s, _, _, _ := newSupervisor()
	feeder := &fakeTask{block: make(chan struct{})}
	s.Feeder = feeder
	t.Cleanup(func() { close(feeder.block) })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
