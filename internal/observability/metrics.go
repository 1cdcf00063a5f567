// Package observability holds the Prometheus collectors for the station.
package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	activeDepartures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trainbot",
			Subsystem: "station",
			Name:      "active_departures",
			Help:      "Trains currently waiting at the station.",
		},
	)
	departures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trainbot",
			Subsystem: "station",
			Name:      "departures_total",
			Help:      "Trains closed, by outcome.",
		},
		[]string{"outcome"},
	)
	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trainbot",
			Subsystem: "command",
			Name:      "requests_total",
			Help:      "Station commands, by verb and result.",
		},
		[]string{"verb", "result"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trainbot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trainbot",
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
		prometheus.MustRegister(activeDepartures, departures, commands, httpRequests, httpDuration)
	})
}

func SetActiveDepartures(n int) {
	RegisterMetrics()
	activeDepartures.Set(float64(n))
}

func RecordDeparture(outcome string) {
	RegisterMetrics()
	departures.WithLabelValues(outcome).Inc()
}

func RecordCommand(verb, result string) {
	RegisterMetrics()
	commands.WithLabelValues(verb, result).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
