// Package observability provides logging, metrics, and tracing for the bridge.
package observability

import (
	"log/slog"
	"os"

	"github.com/openprocurement/bridge-basic/internal/config"
)

// SetupLogger configures a JSON slog logger carrying the bridge identity on
// every line, mirroring the python source's logging.config.dictConfig(config)
// call except driven by a Go-native structured logger instead of a dict config.
func SetupLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{}
	if cfg.LogLevel == "debug" {
		opts.Level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(h).With(
		slog.String("service", "bridge-basic"),
		slog.String("resource", cfg.Resource),
		slog.String("bridge_id", cfg.BridgeID()),
	)
}
