package queue

import (
	"context"
	"testing"
	"time"

	"github.com/openprocurement/bridge-basic/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueue_OrdersByPriorityThenFIFO(t *testing.T) {
	q := New(Unbounded)
	ctx := context.Background()

	require.NoError(t, q.Put(ctx, 1, domain.ResourceItem{ID: "A"}))
	require.NoError(t, q.Put(ctx, 1, domain.ResourceItem{ID: "B"}))
	require.NoError(t, q.Put(ctx, 0, domain.ResourceItem{ID: "C"}))

	var order []string
	for i := 0; i < 3; i++ {
		el, err := q.Get(ctx)
		require.NoError(t, err)
		order = append(order, el.Item.ID)
	}

	assert.Equal(t, []string{"C", "A", "B"}, order)
}

func TestPriorityQueue_QSize(t *testing.T) {
	q := New(Unbounded)
	ctx := context.Background()

	assert.Equal(t, 0, q.QSize())
	require.NoError(t, q.Put(ctx, 0, domain.ResourceItem{ID: "A"}))
	assert.Equal(t, 1, q.QSize())
	_, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, q.QSize())
}

func TestPriorityQueue_UnboundedNeverBlocksOnPut(t *testing.T) {
	q := New(Unbounded)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		require.NoError(t, q.Put(ctx, 0, domain.ResourceItem{ID: "x"}))
	}
	assert.Equal(t, 1000, q.QSize())
}

func TestPriorityQueue_PutBlocksWhenFull(t *testing.T) {
	q := New(1)
	ctx := context.Background()
	require.NoError(t, q.Put(ctx, 0, domain.ResourceItem{ID: "A"}))

	putDone := make(chan error, 1)
	go func() {
		putDone <- q.Put(ctx, 0, domain.ResourceItem{ID: "B"})
	}()

	select {
	case <-putDone:
		t.Fatal("Put should have blocked while queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	_, err := q.Get(ctx)
	require.NoError(t, err)

	select {
	case err := <-putDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Put did not unblock after Get freed capacity")
	}
}

func TestPriorityQueue_GetRespectsContextCancellation(t *testing.T) {
	q := New(Unbounded)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
