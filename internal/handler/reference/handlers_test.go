package reference

import (
	"context"
	"testing"

	"github.com/openprocurement/bridge-basic/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	upserted []domain.ResourceItem
}

func (s *fakeStorage) Filter(_ context.Context, items []domain.ResourceItem) ([]domain.ResourceItem, error) {
	return items, nil
}

func (s *fakeStorage) Upsert(_ context.Context, item domain.ResourceItem) error {
	s.upserted = append(s.upserted, item)
	return nil
}

func TestHandler_StampsAndUpserts(t *testing.T) {
	storage := &fakeStorage{}
	h := New("belowThreshold")

	err := h.Handle(context.Background(), domain.ResourceItem{ID: "A"}, storage)
	require.NoError(t, err)

	require.Len(t, storage.upserted, 1)
	assert.Equal(t, "belowThreshold", storage.upserted[0].Data["handledBy"])
	assert.NotEmpty(t, storage.upserted[0].Data["handledAt"])
}

func TestRegistry_AllowListFiltersMethodTypes(t *testing.T) {
	reg := Registry([]string{"belowThreshold", "esco"})
	assert.Len(t, reg, 2)
	assert.Contains(t, reg, "belowThreshold")
	assert.Contains(t, reg, "esco")
	assert.NotContains(t, reg, "reporting")
}

func TestRegistry_EmptyAllowListRegistersAll(t *testing.T) {
	reg := Registry(nil)
	assert.Len(t, reg, len(MethodTypes))
}
