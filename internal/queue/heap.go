package queue

import "github.com/openprocurement/bridge-basic/internal/domain"

// elementHeap orders by ascending Priority, then lexically by ULID so that
// equal priorities are delivered in insertion order (ULIDs are time-ordered).
type elementHeap []*domain.QueueElement

func (h elementHeap) Len() int { return len(h) }

func (h elementHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].ULID < h[j].ULID
}

func (h elementHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *elementHeap) Push(x interface{}) {
	*h = append(*h, x.(*domain.QueueElement))
}

func (h *elementHeap) Pop() interface{} {
	old := *h
	n := len(old)
	el := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return el
}
