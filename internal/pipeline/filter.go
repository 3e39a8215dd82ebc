package pipeline

import (
	"context"
	"log/slog"

	"github.com/openprocurement/bridge-basic/internal/domain"
)

// FilterTask drains the input queue, consults storage for pass/drop, and
// forwards survivors to the main queue. If no filter plugin is configured,
// cmd/bridge aliases the main queue to the input queue and the Supervisor
// never spawns this task.
type FilterTask struct {
	Plugin  domain.FilterPlugin
	Input   domain.QueueFeed
	Main    domain.QueueFeed
	Storage domain.Storage
}

// Run delegates to the configured plugin. If Run returns, the Supervisor
// logs the error and respawns it.
func (t *FilterTask) Run(ctx context.Context) error {
	if t.Plugin == nil {
		return nil
	}
	slog.Info("filter task starting")
	return t.Plugin.Run(ctx, t.Input, t.Main, t.Storage)
}
