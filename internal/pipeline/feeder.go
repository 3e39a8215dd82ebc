// Package pipeline wires the feeder, filter, worker, retry, and supervisor
// stages of the dispatch engine together.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openprocurement/bridge-basic/internal/domain"
)

// FeederTask drains an upstream domain.Feeder into the input queue. If Run
// returns, the Supervisor logs the error and respawns it.
type FeederTask struct {
	Feeder domain.Feeder
	Input  domain.QueueFeed
}

// Run loops Feeder.Next, Put-ing every item into the input queue, until ctx
// is canceled or the feeder reports exhaustion.
func (t *FeederTask) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		priority, item, ok, err := t.Feeder.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if err := t.Input.Put(ctx, priority, item); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			slog.Error("feeder: failed to enqueue item", slog.String("item_id", item.ID), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("feeder: enqueued item", slog.String("item_id", item.ID), slog.Int("input_queue_size", t.Input.QSize()))
	}
}
