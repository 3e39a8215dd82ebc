// Package clientpool owns the set of upstream HTTP clients, each paired
// with health metadata, and hands them out to pipeline workers.
package clientpool

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/openprocurement/bridge-basic/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Pool owns a FIFO set of API clients plus their health records. Every
// client present in clients has a matching entry in health; removal from
// one is always paired with removal from the other, under mu.
type Pool struct {
	mu      sync.Mutex
	clients chan *domain.ApiClient
	health  map[string]*domain.ClientHealth

	baseURL   string
	userAgent string
	bridgeID  string
}

// New creates an empty Pool; clients are created lazily via Create.
func New(userAgent, bridgeID string) *Pool {
	return &Pool{
		clients:   make(chan *domain.ApiClient, 1<<16),
		health:    make(map[string]*domain.ClientHealth),
		userAgent: userAgent,
		bridgeID:  bridgeID,
	}
}

// Create provisions a new ApiClient and its ClientHealth entry, retrying
// forever with exponential backoff (starting at 100ms, doubling, no cap on
// elapsed time) as the original Python create_api_client does.
func (p *Pool) Create(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.Multiplier = 2
	b.MaxElapsedTime = 0 // retry forever, matching the source's `while 1`

	return backoff.Retry(func() error {
		client, err := p.newClient()
		if err != nil {
			slog.Error("failed to start api client", slog.String("error", err.Error()))
			return err
		}
		p.add(client)
		slog.Info("started api client", slog.String("user_agent", p.userAgent+"/"+p.bridgeID), slog.String("client_id", client.ID))
		return nil
	}, backoff.WithContext(b, ctx))
}

func (p *Pool) newClient() (*domain.ApiClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	transport := otelhttp.NewTransport(&http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}})
	return &domain.ApiClient{
		ID: uuid.New().String(),
		Session: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}, nil
}

func (p *Pool) add(client *domain.ApiClient) {
	p.mu.Lock()
	p.health[client.ID] = &domain.ClientHealth{
		RequestDurations: make(map[time.Time]time.Duration),
	}
	p.mu.Unlock()
	p.clients <- client
}

// Acquire blocks (respecting ctx) until a client is available, then removes
// it from the pool for exclusive use by the caller.
func (p *Pool) Acquire(ctx context.Context) (*domain.ApiClient, error) {
	select {
	case c := <-p.clients:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a client to the pool for reuse by another worker.
func (p *Pool) Release(client *domain.ApiClient) {
	p.clients <- client
}

// Retire atomically removes a client from circulation and deletes its
// health entry. The client must have been Acquired (not currently pooled).
func (p *Pool) Retire(client *domain.ApiClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.health, client.ID)
}

// Health returns the ClientHealth entry for a client ID, or nil if absent.
// The returned pointer's fields must only be read/mutated under the pool's
// lock via RecordDuration/ConsumeDropCookies/RangeHealth; callers that peek
// at it directly (tests) own their own locking.
func (p *Pool) Health(clientID string) *domain.ClientHealth {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.health[clientID]
}

// RecordDuration appends one request-latency sample to a client's sliding
// window under the pool's lock, so it never races the watcher's prune pass.
func (p *Pool) RecordDuration(clientID string, at time.Time, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.health[clientID]; ok {
		h.RequestDurations[at] = d
	}
}

// ConsumeDropCookies atomically reads and clears a client's DropCookies
// flag. A worker calls this on acquire; if it returns true, the worker
// rotates the session before use.
func (p *Pool) ConsumeDropCookies(clientID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.health[clientID]
	if !ok || !h.DropCookies {
		return false
	}
	h.DropCookies = false
	return true
}

// SetRequestInterval updates a client's backoff hint under the pool's lock.
func (p *Pool) SetRequestInterval(clientID string, seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.health[clientID]; ok {
		h.RequestInterval = seconds
	}
}

// RangeHealth calls fn for every (clientID, health) pair under the pool's
// lock, as used by the performance watcher's tick.
func (p *Pool) RangeHealth(fn func(clientID string, health *domain.ClientHealth)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, h := range p.health {
		fn(id, h)
	}
}

// Size returns the number of clients currently checked into the pool
// (excludes clients a worker currently holds via Acquire).
func (p *Pool) Size() int {
	return len(p.clients)
}

// LiveCount returns the total number of clients the pool knows about,
// whether checked in or currently acquired by a worker.
func (p *Pool) LiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.health)
}

// RotateSession swaps in a fresh cookie jar for a client and clears its
// DropCookies flag. Called by a worker when it acquires a client whose
// health entry has DropCookies set.
func (p *Pool) RotateSession(client *domain.ApiClient) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	client.Session.Jar = jar
	p.mu.Lock()
	if h, ok := p.health[client.ID]; ok {
		h.DropCookies = false
	}
	p.mu.Unlock()
	return nil
}
