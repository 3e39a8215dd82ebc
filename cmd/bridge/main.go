// Package main is the bridge's composition root: `bridge <config.yaml>`
// loads configuration, wires every stage of the dispatch engine together,
// and runs until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openprocurement/bridge-basic/internal/clientpool"
	"github.com/openprocurement/bridge-basic/internal/config"
	"github.com/openprocurement/bridge-basic/internal/controller"
	"github.com/openprocurement/bridge-basic/internal/domain"
	httpfeeder "github.com/openprocurement/bridge-basic/internal/feeder/http"
	"github.com/openprocurement/bridge-basic/internal/filterplugin"
	"github.com/openprocurement/bridge-basic/internal/handler/reference"
	"github.com/openprocurement/bridge-basic/internal/observability"
	"github.com/openprocurement/bridge-basic/internal/pipeline"
	"github.com/openprocurement/bridge-basic/internal/queue"
	"github.com/openprocurement/bridge-basic/internal/storage"
	"github.com/openprocurement/bridge-basic/internal/adapter/httpserver"
	"github.com/openprocurement/bridge-basic/internal/watcher"
	"github.com/openprocurement/bridge-basic/internal/workerplugin"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: bridge <config.yaml>")
		return 1
	}

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		slog.Error("config load failed", slog.String("error", err.Error()))
		return 1
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to set up tracing", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting bridge", slog.String("resource", cfg.Resource), slog.String("bridge_id", cfg.BridgeID()))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	storageFactory, ok := storage.Registry[cfg.StorageConfig.StorageType]
	if !ok {
		slog.Error("unknown storage_type", slog.String("storage_type", cfg.StorageConfig.StorageType))
		return 1
	}
	storageBackend, err := storageFactory(ctx, cfg.StorageConfig.Options)
	if err != nil {
		slog.Error("failed to build storage backend", slog.String("error", err.Error()))
		return 1
	}

	filterPlugin, err := filterplugin.Build(cfg.FilterConfig.FilterType)
	if err != nil {
		slog.Error("failed to build filter plugin", slog.String("error", err.Error()))
		return 1
	}

	itemURL, err := workerplugin.Build(cfg.WorkerConfig.WorkerType, workerplugin.Config{
		BaseURL:     cfg.ResourcesAPIServer,
		Version:     cfg.ResourcesAPIVersion,
		Resource:    cfg.Resource,
		ExtraParams: cfg.ExtraParams,
	})
	if err != nil {
		slog.Error("failed to build worker plugin", slog.String("error", err.Error()))
		return 1
	}

	inputQueue := queue.New(capacityOrUnbounded(cfg.InputQueueSize))
	retryQueue := queue.New(capacityOrUnbounded(cfg.RetryResourceItemsQueueSize))

	// When no filter_type is configured, the main queue is the input queue
	// itself — the FilterTask stage is skipped entirely, matching the
	// original's commented-out `self.resource_items_queue = self.input_queue`.
	var mainQueue *queue.PriorityQueue
	var filterTask *pipeline.FilterTask
	if filterPlugin != nil {
		mainQueue = queue.New(capacityOrUnbounded(cfg.ResourceItemsQueueSize))
		filterTask = &pipeline.FilterTask{Plugin: filterPlugin, Input: inputQueue, Main: mainQueue, Storage: storageBackend}
	} else {
		mainQueue = inputQueue
	}

	clientPool := clientpool.New(cfg.UserAgent, cfg.BridgeID())
	handlers := reference.Registry(cfg.Handlers)
	retryConfig := domain.DefaultRetryConfig()

	mainPool := &pipeline.WorkerPool{
		ClientPool:  clientPool,
		Queue:       mainQueue,
		RetryQueue:  retryQueue,
		Storage:     storageBackend,
		Handlers:    handlers,
		ItemURL:     itemURL,
		RetryConfig: retryConfig,
		WorkersMax:  cfg.WorkersMax,
	}
	retryPool := pipeline.NewRetryWorkerPool(clientPool, retryQueue, storageBackend, handlers, itemURL, retryConfig, cfg.RetryWorkersMax)

	upWaitSleep := time.Duration(cfg.RetrieversParams.UpWaitSleep) * time.Second
	feederTask := &pipeline.FeederTask{
		Feeder: httpfeeder.New(nil, cfg.ResourcesAPIServer, cfg.ResourcesAPIVersion, cfg.Resource, cfg.ExtraParams, upWaitSleep),
		Input:  inputQueue,
	}

	perfWatcher := watcher.New(
		time.Duration(cfg.PerfomanceWindow)*time.Second,
		time.Duration(cfg.WatchInterval)*time.Second,
	)

	qController := controller.New(
		mainQueue,
		cfg.ResourceItemsQueueSize,
		cfg.WorkersMin,
		cfg.WorkersIncThreshold,
		cfg.WorkersDecThreshold,
		time.Duration(cfg.QueuesControllerTimeout)*time.Second,
	)

	supervisor := &pipeline.Supervisor{
		Watcher:         perfWatcher,
		ClientPool:      clientPool,
		MainPool:        mainPool,
		RetryPool:       retryPool,
		WorkersMin:      cfg.WorkersMin,
		RetryWorkersMin: cfg.RetryWorkersMin,
		InputQueue:      inputQueue,
		MainQueue:       mainQueue,
		RetryQueue:      retryQueue,
		Feeder:          feederTask,
		TickInterval:    time.Duration(cfg.WatchInterval) * time.Second,
	}
	if filterTask != nil {
		supervisor.Filter = filterTask
	}

	if err := mainPool.Run(ctx, cfg.WorkersMin); err != nil {
		slog.Error("failed to start main worker pool", slog.String("error", err.Error()))
		return 1
	}
	if err := retryPool.Run(ctx, cfg.RetryWorkersMin); err != nil {
		slog.Error("failed to start retry worker pool", slog.String("error", err.Error()))
		return 1
	}

	go qController.Run(ctx, mainPool)
	go supervisor.Run(ctx)

	debugServer := &http.Server{
		Addr: cfg.MetricsAddr,
		Handler: httpserver.NewRouter(&httpserver.Status{
			InputQueue: inputQueue,
			MainQueue:  mainQueue,
			RetryQueue: retryQueue,
			MainPool:   mainPool,
			RetryPool:  retryPool,
			ClientPool: clientPool,
			BridgeID:   cfg.BridgeID(),
		}, []string{"*"}, 0),
	}
	go func() {
		if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("debug server error", slog.String("error", err.Error()))
		}
	}()

	slog.Info("bridge started", slog.String("metrics_addr", cfg.MetricsAddr))
	slog.Info("send signal TERM or INT to terminate the process")

	<-ctx.Done()
	slog.Info("signal received, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := debugServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("debug server shutdown error", slog.String("error", err.Error()))
	}

	mainPool.Wait()
	retryPool.Wait()

	slog.Info("bridge stopped")
	return 0
}

func capacityOrUnbounded(size int) int {
	if size <= 0 {
		return queue.Unbounded
	}
	return size
}
