package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/openprocurement/bridge-basic/internal/clientpool"
	"github.com/openprocurement/bridge-basic/internal/domain"
	"github.com/openprocurement/bridge-basic/internal/observability"
)

// ItemURLFunc builds the upstream URL a worker fetches for a given item.
type ItemURLFunc func(item domain.ResourceItem) string

// WorkerPool is the elastic main worker pool: one goroutine per worker,
// popping from Queue, fetching via an acquired client, and dispatching to
// the registered handler or the retry queue.
type WorkerPool struct {
	ClientPool  *clientpool.Pool
	Queue       domain.QueueFeed
	RetryQueue  domain.QueueFeed
	Storage     domain.Storage
	Handlers    map[string]domain.Handler
	ItemURL     ItemURLFunc
	RetryConfig domain.RetryConfig
	WorkersMax  int

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

// Run brings the pool up to workersMin workers.
func (p *WorkerPool) Run(ctx context.Context, workersMin int) error {
	for i := 0; i < workersMin; i++ {
		if err := p.SpawnOne(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SpawnOne provisions a new client and starts one worker goroutine. The
// worker is not bound to that client: it acquires whichever client is free
// for each item. The worker stops when its own context is canceled by
// ShutdownOne or when the parent ctx is canceled.
func (p *WorkerPool) SpawnOne(ctx context.Context) error {
	if err := p.ClientPool.Create(ctx); err != nil {
		return err
	}

	workerCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancels = append(p.cancels, cancel)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop(workerCtx)
	}()
	return nil
}

// ShutdownOne cooperatively stops one worker and retires one client from the
// pool. It is a no-op if no workers are running. Per the source's open
// question (spec §9), the retired client is not necessarily the one the
// stopped worker last held — that association was never tracked — so this
// simply pops whichever client is next available.
func (p *WorkerPool) ShutdownOne(ctx context.Context) error {
	p.mu.Lock()
	if len(p.cancels) == 0 {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancels[len(p.cancels)-1]
	p.cancels = p.cancels[:len(p.cancels)-1]
	p.mu.Unlock()

	cancel()

	client, err := p.ClientPool.Acquire(ctx)
	if err != nil {
		return err
	}
	p.ClientPool.Retire(client)
	return nil
}

// FreeCount reports how many more workers can be spawned before WorkersMax.
func (p *WorkerPool) FreeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	free := p.WorkersMax - len(p.cancels)
	if free < 0 {
		return 0
	}
	return free
}

// Size reports the current worker count.
func (p *WorkerPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cancels)
}

// Wait blocks until every spawned worker goroutine has returned.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// loop runs the seven-step worker cycle: pop, acquire, rotate, sleep,
// fetch, classify, dispatch/retry/drop, release.
func (p *WorkerPool) loop(ctx context.Context) {
	for {
		el, err := p.Queue.Get(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Error("worker: failed to pop item", slog.String("error", err.Error()))
			return
		}
		p.process(ctx, el.Item)
	}
}

func (p *WorkerPool) process(ctx context.Context, item domain.ResourceItem) {
	client, err := p.ClientPool.Acquire(ctx)
	if err != nil {
		return
	}
	defer p.ClientPool.Release(client)

	if p.ClientPool.ConsumeDropCookies(client.ID) {
		if err := p.ClientPool.RotateSession(client); err != nil {
			slog.Error("worker: failed to rotate session", slog.String("client_id", client.ID), slog.String("error", err.Error()))
		}
	}

	if client.RequestInterval > 0 {
		select {
		case <-time.After(time.Duration(client.RequestInterval * float64(time.Second))):
		case <-ctx.Done():
			return
		}
	}

	start := time.Now()
	status, err := p.fetch(ctx, client, item)
	duration := time.Since(start)
	p.ClientPool.RecordDuration(client.ID, start, duration)

	outcome := classifyStatus(status)
	if err != nil && status == 0 {
		outcome = "transient_failure"
	}
	observability.RecordUpstreamRequest(outcome)

	switch outcome {
	case "success":
		handler, ok := p.Handlers[item.ProcurementMethodType]
		if !ok {
			slog.Warn("worker: no handler registered", slog.String("procurement_method_type", item.ProcurementMethodType))
			observability.RecordItemHandled(item.ProcurementMethodType, "unhandled")
			return
		}
		if err := handler.Handle(ctx, item, p.Storage); err != nil {
			slog.Error("worker: handler failed, re-enqueueing", slog.String("item_id", item.ID), slog.String("error", err.Error()))
			observability.RecordItemHandled(item.ProcurementMethodType, "handler_error")
			if err := p.RetryQueue.Put(ctx, 0, item); err != nil {
				slog.Error("worker: failed to enqueue retry after handler failure", slog.String("item_id", item.ID), slog.String("error", err.Error()))
			}
			return
		}
		observability.RecordItemHandled(item.ProcurementMethodType, "success")
	case "transient_failure":
		client.RequestInterval = p.backoffSeconds(client.RequestInterval)
		p.ClientPool.SetRequestInterval(client.ID, client.RequestInterval)
		if err := p.RetryQueue.Put(ctx, 0, item); err != nil {
			slog.Error("worker: failed to enqueue retry", slog.String("item_id", item.ID), slog.String("error", err.Error()))
		}
	case "permanent_failure":
		slog.Warn("worker: permanent failure, dropping item", slog.String("item_id", item.ID), slog.Int("status", status))
		observability.RecordItemHandled(item.ProcurementMethodType, "dropped")
	}
}

func (p *WorkerPool) fetch(ctx context.Context, client *domain.ApiClient, item domain.ResourceItem) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.ItemURL(item), nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Session.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// backoffSeconds grows the client's backoff by RetryConfig.Multiplier from
// RetryConfig.InitialDelay, capped at RetryConfig.MaxDelay, driving
// ApiClient.RequestInterval directly instead of a scheduled retry timer,
// since the dispatch core's retry channel is a queue, not a timer.
func (p *WorkerPool) backoffSeconds(current float64) float64 {
	initial := p.RetryConfig.InitialDelay.Seconds()
	if initial <= 0 {
		initial = 1
	}
	multiplier := p.RetryConfig.Multiplier
	if multiplier <= 1 {
		multiplier = 2
	}
	next := current * multiplier
	if next <= 0 {
		next = initial
	}
	if max := p.RetryConfig.MaxDelay.Seconds(); max > 0 && next > max {
		next = max
	}
	return next
}
