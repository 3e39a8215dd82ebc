package static

import (
	"context"
	"testing"

	"github.com/openprocurement/bridge-basic/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeder_YieldsInOrderThenExhausts(t *testing.T) {
	f := New([]Element{
		{Priority: 1, Item: domain.ResourceItem{ID: "A"}},
		{Priority: 0, Item: domain.ResourceItem{ID: "C"}},
	})
	ctx := context.Background()

	priority, item, ok, err := f.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, priority)
	assert.Equal(t, "A", item.ID)

	_, item, ok, err = f.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "C", item.ID)

	_, _, ok, err = f.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFeeder_RespectsContextCancellation(t *testing.T) {
	f := New([]Element{{Item: domain.ResourceItem{ID: "A"}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, ok, err := f.Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
