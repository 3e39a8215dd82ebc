// Package domain defines the core data types and error taxonomy shared
// across the dispatch engine.
package domain

import (
	"errors"
	"net/http"
	"time"
)

// Sentinel errors classify every failure the engine can surface. Callers
// use errors.Is against these to decide retry/DLQ/fatal handling.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
	// ErrConfig marks a startup-fatal configuration error: invalid URL,
	// missing required key, or up_wait_sleep below the 30s floor.
	ErrConfig = errors.New("config error")
)

// ResourceItem is an opaque record pulled from the upstream feed, carried
// through the pipeline paired with a priority (lower is sooner).
type ResourceItem struct {
	ID                    string
	DateModified          time.Time
	ProcurementMethodType string
	// Data carries the provider-specific fields a handler needs; the core
	// never inspects it beyond ID/DateModified/ProcurementMethodType.
	Data map[string]interface{}
}

// QueueElement pairs a ResourceItem with its dispatch priority and a
// monotonic ULID used to break priority ties in FIFO order: equal
// priorities compare by ULID, which is itself time-ordered, so no separate
// sequence counter or lock is needed.
type QueueElement struct {
	Priority int
	ULID     string
	Item     ResourceItem
}

// ApiClient is a handle bound to one upstream HTTP session.
type ApiClient struct {
	ID string
	// Session is the underlying HTTP client, carrying persistent cookies.
	// It sets no User-Agent header; the "<UserAgent>/<BridgeID>" string
	// appears only in the pool's log line when the client is created.
	Session *http.Client
	// RequestInterval is the number of seconds to sleep before the next
	// use of this client, set by workers on 429/5xx responses.
	RequestInterval float64
	// NotActualCount counts consecutive "resource unchanged" responses.
	NotActualCount int
}

// ClientHealth tracks one ApiClient's recent performance, keyed by
// ApiClient.ID in the pool's health map.
type ClientHealth struct {
	// DropCookies, when true, means the next user must rotate session
	// cookies before use.
	DropCookies bool
	// RequestDurations is a sliding window of recent request latencies,
	// keyed by the timestamp the request was recorded at.
	RequestDurations map[time.Time]time.Duration
	RequestInterval  float64
	AvgDuration      float64
	// Grown is set once the oldest retained sample is at least one
	// perfomance_window old, i.e. the window is full and AvgDuration
	// reflects steady-state behavior rather than ramp-up. It is never reset.
	Grown bool
}

// BridgeIdentity is the one random identifier generated per process. It is
// not sent in any client's User-Agent header.
type BridgeIdentity struct {
	BridgeID string
}
