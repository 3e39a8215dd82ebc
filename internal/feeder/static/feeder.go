// Package static implements a minimal in-memory domain.Feeder over a fixed
// slice of (priority, item) pairs, used by tests and as a worked example of
// the upstream collaborator the dispatch core only consumes.
package static

import (
	"context"
	"sync"

	"github.com/openprocurement/bridge-basic/internal/domain"
)

// Element pairs a ResourceItem with its dispatch priority, mirroring
// domain.QueueElement's shape without the ULID tie-breaker a feeder has no
// reason to assign.
type Element struct {
	Priority int
	Item     domain.ResourceItem
}

// Feeder replays a fixed slice of elements once, then reports exhaustion.
// Safe for a single concurrent caller, matching FeederTask's one-task-at-a-
// time contract.
type Feeder struct {
	mu       sync.Mutex
	elements []Element
	pos      int
}

// New builds a Feeder that yields elements in order, once.
func New(elements []Element) *Feeder {
	return &Feeder{elements: elements}
}

// Next returns the next queued element, or ok=false once exhausted.
func (f *Feeder) Next(ctx context.Context) (int, domain.ResourceItem, bool, error) {
	select {
	case <-ctx.Done():
		return 0, domain.ResourceItem{}, false, ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.elements) {
		return 0, domain.ResourceItem{}, false, nil
	}
	el := f.elements[f.pos]
	f.pos++
	return el.Priority, el.Item, true, nil
}
