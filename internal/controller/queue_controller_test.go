package controller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueueSize struct{ size int }

func (f fakeQueueSize) QSize() int { return f.size }

type fakeWorkerPool struct {
	free    int32
	size    int32
	spawned int32
	killed  int32
}

func (p *fakeWorkerPool) FreeCount() int { return int(atomic.LoadInt32(&p.free)) }
func (p *fakeWorkerPool) Size() int      { return int(atomic.LoadInt32(&p.size)) }
func (p *fakeWorkerPool) SpawnOne(ctx context.Context) error {
	atomic.AddInt32(&p.spawned, 1)
	atomic.AddInt32(&p.size, 1)
	atomic.AddInt32(&p.free, -1)
	return nil
}
func (p *fakeWorkerPool) ShutdownOne(ctx context.Context) error {
	atomic.AddInt32(&p.killed, 1)
	atomic.AddInt32(&p.size, -1)
	return nil
}

func TestController_ScaleUp_WhenFillExceedsIncThreshold(t *testing.T) {
	mainQueue := fakeQueueSize{size: 60}
	pool := &fakeWorkerPool{free: 1, size: 2}
	c := New(mainQueue, 100, 1, 50, 10, time.Second)

	c.Tick(context.Background(), pool)

	assert.Equal(t, int32(1), pool.spawned)
	assert.Equal(t, int32(0), pool.killed)
}

func TestController_ScaleDown_WhenFillBelowDecThresholdAndAboveMin(t *testing.T) {
	mainQueue := fakeQueueSize{size: 5}
	pool := &fakeWorkerPool{free: 0, size: 3}
	c := New(mainQueue, 100, 1, 50, 10, time.Second)

	c.Tick(context.Background(), pool)

	assert.Equal(t, int32(1), pool.killed)
	assert.Equal(t, int32(0), pool.spawned)
}

func TestController_SteadyState_WhenThresholdsEqual(t *testing.T) {
	mainQueue := fakeQueueSize{size: 50}
	pool := &fakeWorkerPool{free: 1, size: 2}
	c := New(mainQueue, 100, 1, 50, 50, time.Second)

	c.Tick(context.Background(), pool)

	assert.Equal(t, int32(0), pool.spawned)
	assert.Equal(t, int32(0), pool.killed)
}

func TestController_NoScaleDown_AtWorkersMin(t *testing.T) {
	mainQueue := fakeQueueSize{size: 0}
	pool := &fakeWorkerPool{free: 0, size: 1}
	c := New(mainQueue, 100, 1, 50, 10, time.Second)

	c.Tick(context.Background(), pool)

	assert.Equal(t, int32(0), pool.killed)
}

func TestRetryFillPercent_PreservesDoubleDivisionQuirk(t *testing.T) {
	// 50 of 100 capacity "really" is 50%, but the preserved formula divides
	// by the raw capacity and then by 100 again.
	got := RetryFillPercent(50, 100)
	require.InDelta(t, 0.005, got, 1e-9)
}

func TestMainFillPercent_ComputesRealPercentage(t *testing.T) {
	got := MainFillPercent(50, 100)
	require.InDelta(t, 50.0, got, 1e-9)
}
