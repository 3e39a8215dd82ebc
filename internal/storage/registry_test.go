package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprocurement/bridge-basic/internal/domain"
)

func TestRegistry_Memory(t *testing.T) {
	factory, ok := Registry["memory"]
	require.True(t, ok)

	s, err := factory(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, s)

	require.NoError(t, s.Upsert(context.Background(), domain.ResourceItem{ID: "A"}))
}

func TestRegistry_PostgresRequiresDSN(t *testing.T) {
	factory, ok := Registry["postgres"]
	require.True(t, ok)

	_, err := factory(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
}
