package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheLookups    *prometheus.CounterVec

	checkIns          *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	realtimeDelivered *prometheus.CounterVec
	realtimeDropped   *prometheus.CounterVec
	realtimeConns     prometheus.Gauge
	schedulerTicks    *prometheus.CounterVec
	schedulerDuration prometheus.Histogram
	sessionsStarted   *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
}

// NewMetricsService registers the service collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		checkIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_checkins_total",
			Help: "Check-in requests by method and outcome",
		}, []string{"method", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_queue_transitions_total",
			Help: "Queue entries moved into a status",
		}, []string{"status"}),
		realtimeDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_realtime_delivered_total",
			Help: "Realtime frames queued to clients",
		}, []string{"event"}),
		realtimeDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_realtime_dropped_total",
			Help: "Realtime frames dropped because a client buffer was full",
		}, []string{"event"}),
		realtimeConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dismissal_realtime_connections",
			Help: "Open websocket connections",
		}),
		schedulerTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_scheduler_ticks_total",
			Help: "Scheduler ticks by outcome",
		}, []string{"outcome"}),
		schedulerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dismissal_scheduler_tick_seconds",
			Help:    "Duration of scheduler ticks",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_sessions_started_total",
			Help: "Sessions activated by trigger",
		}, []string{"trigger"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_events_published_total",
			Help: "Domain events by outcome",
		}, []string{"outcome"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheLookups,
		m.checkIns, m.transitions,
		m.realtimeDelivered, m.realtimeDropped, m.realtimeConns,
		m.schedulerTicks, m.schedulerDuration,
		m.sessionsStarted, m.eventsPublished,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordCheckIn counts a check-in by outcome (enrolled, already_submitted, not_found, error).
func (m *MetricsService) RecordCheckIn(method, outcome string) {
	if m == nil {
		return
	}
	m.checkIns.WithLabelValues(method, outcome).Inc()
}

// RecordTransitions counts entries that moved into status.
func (m *MetricsService) RecordTransitions(status string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.transitions.WithLabelValues(status).Add(float64(n))
}

// RecordRealtimeDelivery counts frames queued and dropped for an event.
func (m *MetricsService) RecordRealtimeDelivery(event string, delivered, dropped int) {
	if m == nil {
		return
	}
	if delivered > 0 {
		m.realtimeDelivered.WithLabelValues(event).Add(float64(delivered))
	}
	if dropped > 0 {
		m.realtimeDropped.WithLabelValues(event).Add(float64(dropped))
	}
}

// SetRealtimeConnections records the number of open websocket clients.
func (m *MetricsService) SetRealtimeConnections(n int) {
	if m == nil {
		return
	}
	m.realtimeConns.Set(float64(n))
}

// RecordSchedulerTick records one scheduler tick.
func (m *MetricsService) RecordSchedulerTick(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.schedulerTicks.WithLabelValues(outcome).Inc()
	m.schedulerDuration.Observe(duration.Seconds())
}

// RecordSessionStarted counts session activations by trigger (scheduler, manual).
func (m *MetricsService) RecordSessionStarted(trigger string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(trigger).Inc()
}

// RecordEventPublished counts domain events by outcome (published, dropped, failed).
func (m *MetricsService) RecordEventPublished(outcome string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(outcome).Inc()
}
