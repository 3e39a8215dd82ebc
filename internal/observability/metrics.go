// Package observability provides logging, metrics, and tracing for the bridge.
package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts debug-server requests by route, method, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served by the bridge debug server",
		},
		[]string{"route", "method", "status"},
	)
	// HTTPRequestDuration records debug-server request durations by route and method.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	// UpstreamRequestsTotal counts upstream resource API requests by outcome.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of upstream resource API requests by outcome",
		},
		[]string{"outcome"},
	)

	// ItemsHandledTotal counts items dispatched to handlers by procurementMethodType and outcome.
	ItemsHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_handled_total",
			Help: "Total number of resource items dispatched to handlers",
		},
		[]string{"procurement_method_type", "outcome"},
	)

	// MainQueueSize is a gauge of the current main queue depth.
	MainQueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "main_queue_size",
		Help: "Current number of items waiting in the main queue",
	})
	// RetryQueueSize is a gauge of the current retry queue depth.
	RetryQueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "retry_queue_size",
		Help: "Current number of items waiting in the retry queue",
	})
	// InputQueueSize is a gauge of the current input queue depth.
	InputQueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "input_queue_size",
		Help: "Current number of items waiting in the input queue",
	})
	// LiveClientsCount is a gauge of the number of live API clients in the pool.
	LiveClientsCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "live_clients_count",
		Help: "Current number of API clients held by the pool",
	})
	// MainWorkersCount is a gauge of the current main worker pool size.
	MainWorkersCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "main_workers_count",
		Help: "Current number of main pool workers",
	})
	// RetryWorkersCount is a gauge of the current retry worker pool size.
	RetryWorkersCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "retry_workers_count",
		Help: "Current number of retry pool workers",
	})

	// RequestsDev is the PerformanceWatcher's REQUESTS_DEV gauge, in milliseconds.
	RequestsDev = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "requests_dev_ms",
		Help: "stddev(avg_duration) + avg(avg_duration) across clients, in milliseconds",
	})
	// RequestsMinAvg is the PerformanceWatcher's REQUESTS_MIN_AVG gauge, in milliseconds.
	RequestsMinAvg = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "requests_min_avg_ms",
		Help: "Minimum per-client average request duration, in milliseconds",
	})
	// RequestsMaxAvg is the PerformanceWatcher's REQUESTS_MAX_AVG gauge, in milliseconds.
	RequestsMaxAvg = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "requests_max_avg_ms",
		Help: "Maximum per-client average request duration, in milliseconds",
	})
	// RequestsAvg is the PerformanceWatcher's REQUESTS_AVG gauge, in milliseconds.
	RequestsAvg = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "requests_avg_ms",
		Help: "Average of per-client average request durations, in milliseconds",
	})
)

// InitMetrics registers all Prometheus metrics with the default registry.
func InitMetrics() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		ItemsHandledTotal,
		MainQueueSize,
		RetryQueueSize,
		InputQueueSize,
		LiveClientsCount,
		MainWorkersCount,
		RetryWorkersCount,
		RequestsDev,
		RequestsMinAvg,
		RequestsMaxAvg,
		RequestsAvg,
	)
}

// HTTPMetricsMiddleware records Prometheus metrics for each debug-server request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// RecordUpstreamRequest increments the upstream request counter for the given
// outcome ("success", "transient_failure", "permanent_failure").
func RecordUpstreamRequest(outcome string) {
	UpstreamRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordItemHandled increments the items-handled counter for a
// procurementMethodType/outcome pair.
func RecordItemHandled(procurementMethodType, outcome string) {
	ItemsHandledTotal.WithLabelValues(procurementMethodType, outcome).Inc()
}

// SetPoolGauges updates the worker-pool and client-pool size gauges.
func SetPoolGauges(mainWorkers, retryWorkers, liveClients int) {
	MainWorkersCount.Set(float64(mainWorkers))
	RetryWorkersCount.Set(float64(retryWorkers))
	LiveClientsCount.Set(float64(liveClients))
}

// SetQueueGauges updates the queue-depth gauges.
func SetQueueGauges(input, main, retry int) {
	InputQueueSize.Set(float64(input))
	MainQueueSize.Set(float64(main))
	RetryQueueSize.Set(float64(retry))
}

// SetPerformanceGauges updates the PerformanceWatcher's reported gauges. All
// values are already in milliseconds.
func SetPerformanceGauges(dev, minAvg, maxAvg, avg float64) {
	RequestsDev.Set(dev)
	RequestsMinAvg.Set(minAvg)
	RequestsMaxAvg.Set(maxAvg)
	RequestsAvg.Set(avg)
}
