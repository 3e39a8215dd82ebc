package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openprocurement/bridge-basic/internal/observability"
)

// QueueDepths is the subset of domain.QueueFeed the debug server reports.
type QueueDepths interface {
	QSize() int
}

// PoolSize is the subset of pipeline.WorkerPool/clientpool.Pool the debug
// server reports.
type PoolSize interface {
	Size() int
}

// ClientCounter reports the number of clients currently held by the pool.
type ClientCounter interface {
	LiveCount() int
}

// Status bundles the live components the debug server introspects. It never
// touches the dispatch path itself, only reads sizes off it.
type Status struct {
	InputQueue QueueDepths
	MainQueue  QueueDepths
	RetryQueue QueueDepths
	MainPool   PoolSize
	RetryPool  PoolSize
	ClientPool ClientCounter
	BridgeID   string
}

// NewRouter builds the debug/ops HTTP handler: health, metrics, and queue
// introspection, fronted by the same security/logging middleware stack used
// for application endpoints. corsOrigins of "*" allows any origin, matching
// a read-only ops surface with no cookies or credentials.
func NewRouter(status *Status, corsOrigins []string, rateLimitPerMin int) http.Handler {
	r := chi.NewRouter()
	r.Use(Recoverer())
	r.Use(RequestID())
	r.Use(TimeoutMiddleware(10 * time.Second))
	r.Use(AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	if rateLimitPerMin > 0 {
		r.Use(httprate.LimitByIP(rateLimitPerMin, time.Minute))
	}

	r.Get("/healthz", healthzHandler(status))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/debug/queues", debugQueuesHandler(status))

	return SecurityHeaders(r)
}

func healthzHandler(status *Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"bridge_id": status.BridgeID,
		})
	}
}

func debugQueuesHandler(status *Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{
			"input_queue_size":  status.InputQueue.QSize(),
			"main_queue_size":   status.MainQueue.QSize(),
			"retry_queue_size":  status.RetryQueue.QSize(),
			"main_workers":      status.MainPool.Size(),
			"retry_workers":     status.RetryPool.Size(),
			"live_clients_count": status.ClientPool.LiveCount(),
		})
	}
}
