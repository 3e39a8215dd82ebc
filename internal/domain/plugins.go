package domain

import "context"

// Feeder is the out-of-scope upstream collaborator: a lazy, prioritized
// stream of resource items. The core only consumes it via Next.
type Feeder interface {
	// Next returns the next (priority, item) pair. ok is false once the
	// feeder is exhausted; err is non-nil on a transport failure, in which
	// case the caller should back off and retry.
	Next(ctx context.Context) (priority int, item ResourceItem, ok bool, err error)
}

// Storage is the opaque filter/persistence backend. Filter decides which
// items survive past the FilterTask stage; Upsert persists a handled item.
type Storage interface {
	Filter(ctx context.Context, items []ResourceItem) ([]ResourceItem, error)
	Upsert(ctx context.Context, item ResourceItem) error
}

// Handler processes one surviving ResourceItem after a worker has fetched
// it from upstream. Handlers are keyed by the ProcurementMethodType they
// claim to handle.
type Handler interface {
	Handle(ctx context.Context, item ResourceItem, storage Storage) error
}

// FilterPlugin moves items from the input queue to the main queue, deciding
// pass/drop against storage. When no filter plugin is configured,
// cmd/bridge aliases the main queue to the input queue and this stage is
// skipped entirely.
type FilterPlugin interface {
	Run(ctx context.Context, input, main QueueFeed, storage Storage) error
}

// QueueFeed is the minimal surface FilterPlugin and workers need from a
// queue.PriorityQueue, kept here to avoid internal/domain depending on
// internal/queue.
type QueueFeed interface {
	Put(ctx context.Context, priority int, item ResourceItem) error
	Get(ctx context.Context) (QueueElement, error)
	QSize() int
}
