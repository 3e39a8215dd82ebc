// Package datemodified implements a reference domain.FilterPlugin: an item
// survives past the input queue only if storage reports it as newer than
// whatever copy it already holds, mirroring the inferred "filter against
// storage" contract of spec.md §4.E.
package datemodified

import (
	"context"
	"log/slog"

	"github.com/openprocurement/bridge-basic/internal/domain"
)

// Filter is a reference FilterTask plugin: pop from input, ask storage
// whether the item is newer than what's already persisted, forward
// survivors to main.
type Filter struct{}

// New constructs a reference date-modified filter plugin.
func New() *Filter {
	return &Filter{}
}

// Run drains input, consults storage.Filter one item at a time, and forwards
// survivors to main. It returns only when getting from input or putting to
// main fails (e.g. context cancellation); a storage error on one item is logged and the item
// is dropped rather than aborting the whole task, so a transient storage
// blip doesn't kill the filter task for every other item in flight.
func (f *Filter) Run(ctx context.Context, input, main domain.QueueFeed, storage domain.Storage) error {
	for {
		el, err := input.Get(ctx)
		if err != nil {
			return err
		}

		survivors, err := storage.Filter(ctx, []domain.ResourceItem{el.Item})
		if err != nil {
			slog.Error("filter: storage lookup failed, dropping item", slog.String("item_id", el.Item.ID), slog.String("error", err.Error()))
			continue
		}
		if len(survivors) == 0 {
			slog.Debug("filter: item dropped, not newer than stored copy", slog.String("item_id", el.Item.ID))
			continue
		}

		if err := main.Put(ctx, el.Priority, el.Item); err != nil {
			return err
		}
	}
}
