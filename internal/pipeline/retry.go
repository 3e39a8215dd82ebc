package pipeline

import (
	"github.com/openprocurement/bridge-basic/internal/clientpool"
	"github.com/openprocurement/bridge-basic/internal/domain"
)

// NewRetryWorkerPool builds a WorkerPool wired so Queue and RetryQueue both
// point at the retry queue: workers pop from it and, on a further transient
// failure, re-enqueue back onto it — an identical worker signature to the
// main pool, over a single queue instead of two.
func NewRetryWorkerPool(
	clientPool *clientpool.Pool,
	retryQueue domain.QueueFeed,
	storage domain.Storage,
	handlers map[string]domain.Handler,
	itemURL ItemURLFunc,
	retryConfig domain.RetryConfig,
	workersMax int,
) *WorkerPool {
	return &WorkerPool{
		ClientPool:  clientPool,
		Queue:       retryQueue,
		RetryQueue:  retryQueue,
		Storage:     storage,
		Handlers:    handlers,
		ItemURL:     itemURL,
		RetryConfig: retryConfig,
		WorkersMax:  workersMax,
	}
}
