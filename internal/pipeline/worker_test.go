package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprocurement/bridge-basic/internal/clientpool"
	"github.com/openprocurement/bridge-basic/internal/domain"
	"github.com/openprocurement/bridge-basic/internal/queue"
)

type recordingHandler struct {
	mu      sync.Mutex
	calls   []domain.ResourceItem
	failErr error
}

func (h *recordingHandler) Handle(ctx context.Context, item domain.ResourceItem, storage domain.Storage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, item)
	return h.failErr
}

func (h *recordingHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

type fakeStorage struct{}

func (fakeStorage) Filter(ctx context.Context, items []domain.ResourceItem) ([]domain.ResourceItem, error) {
	return items, nil
}
func (fakeStorage) Upsert(ctx context.Context, item domain.ResourceItem) error { return nil }

func newTestPool(t *testing.T, serverStatus int, handler *recordingHandler) (*WorkerPool, *clientpool.Pool, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(serverStatus)
	}))

	cp := clientpool.New("bridge-basic", "test-bridge-id")
	retryQueue := queue.New(queue.Unbounded)

	p := &WorkerPool{
		ClientPool: cp,
		RetryQueue: retryQueue,
		Storage:    fakeStorage{},
		Handlers:   map[string]domain.Handler{"belowThreshold": handler},
		ItemURL:    func(domain.ResourceItem) string { return srv.URL },
		WorkersMax: 10,
	}
	return p, cp, srv.Close
}

func TestWorkerPool_Process_SuccessDispatchesToHandler(t *testing.T) {
	handler := &recordingHandler{}
	p, cp, closeSrv := newTestPool(t, http.StatusOK, handler)
	defer closeSrv()
	require.NoError(t, cp.Create(context.Background()))

	p.process(context.Background(), domain.ResourceItem{ID: "A", ProcurementMethodType: "belowThreshold"})

	assert.Equal(t, 1, handler.callCount())
	assert.Equal(t, 0, p.RetryQueue.QSize())
}

func TestWorkerPool_Process_HandlerFailureReenqueuesToRetry(t *testing.T) {
	handler := &recordingHandler{failErr: assertErr("handler blew up")}
	p, cp, closeSrv := newTestPool(t, http.StatusOK, handler)
	defer closeSrv()
	require.NoError(t, cp.Create(context.Background()))

	p.process(context.Background(), domain.ResourceItem{ID: "A", ProcurementMethodType: "belowThreshold"})

	assert.Equal(t, 1, handler.callCount())
	assert.Equal(t, 1, p.RetryQueue.QSize())
}

func TestWorkerPool_Process_TransientFailureBacksOffAndRetries(t *testing.T) {
	handler := &recordingHandler{}
	p, cp, closeSrv := newTestPool(t, http.StatusInternalServerError, handler)
	defer closeSrv()
	require.NoError(t, cp.Create(context.Background()))

	p.process(context.Background(), domain.ResourceItem{ID: "A", ProcurementMethodType: "belowThreshold"})

	assert.Equal(t, 0, handler.callCount())
	assert.Equal(t, 1, p.RetryQueue.QSize())

	client, err := cp.Acquire(context.Background())
	require.NoError(t, err)
	assert.Greater(t, client.RequestInterval, 0.0)
	health := cp.Health(client.ID)
	require.NotNil(t, health)
	assert.Equal(t, client.RequestInterval, health.RequestInterval)
}

func TestWorkerPool_Process_PermanentFailureDropsItem(t *testing.T) {
	handler := &recordingHandler{}
	p, cp, closeSrv := newTestPool(t, http.StatusNotFound, handler)
	defer closeSrv()
	require.NoError(t, cp.Create(context.Background()))

	p.process(context.Background(), domain.ResourceItem{ID: "A", ProcurementMethodType: "belowThreshold"})

	assert.Equal(t, 0, handler.callCount())
	assert.Equal(t, 0, p.RetryQueue.QSize())
}

func TestWorkerPool_ShutdownOne_RetiresAClientAndStopsAWorker(t *testing.T) {
	handler := &recordingHandler{}
	p, cp, closeSrv := newTestPool(t, http.StatusOK, handler)
	defer closeSrv()
	p.Queue = queue.New(queue.Unbounded)

	require.NoError(t, p.SpawnOne(context.Background()))
	require.Equal(t, 1, p.Size())
	require.Equal(t, 1, cp.LiveCount())

	require.NoError(t, p.ShutdownOne(context.Background()))

	require.Eventually(t, func() bool { return p.Size() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, cp.LiveCount())
}

type assertErr string

func (a assertErr) Error() string { return string(a) }
