package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "audacd",
			Subsystem: "protocol",
			Name:      "exchanges_total",
			Help:      "Total protocol exchanges by command and outcome.",
		},
		[]string{"command", "outcome"},
	)
	exchangeRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "audacd",
			Subsystem: "protocol",
			Name:      "exchange_retries_total",
			Help:      "Total exchange retry attempts after a transient failure.",
		},
	)
	pollCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "audacd",
			Subsystem: "poll",
			Name:      "cycles_total",
			Help:      "Total poll cycles by device and outcome.",
		},
		[]string{"device", "outcome"},
	)
	pollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "audacd",
			Subsystem: "poll",
			Name:      "cycle_duration_seconds",
			Help:      "Poll cycle duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"device"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "audacd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "audacd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			exchanges, exchangeRetries, pollCycles, pollDuration,
			httpRequests, httpDuration,
		)
	})
}

func RecordExchange(command, outcome string) {
	RegisterMetrics()
	exchanges.WithLabelValues(command, outcome).Inc()
}

func RecordExchangeRetry() {
	RegisterMetrics()
	exchangeRetries.Inc()
}

func RecordPoll(device, outcome string, duration time.Duration) {
	RegisterMetrics()
	pollCycles.WithLabelValues(device, outcome).Inc()
	pollDuration.WithLabelValues(device).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
