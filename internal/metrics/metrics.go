// Package metrics registers Tripper's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripper_http_requests_total",
		Help: "HTTP requests processed, by method, route and status code.",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tripper_http_request_duration_seconds",
		Help:    "HTTP request latency, by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// ExpensesCreated counts expenses successfully logged.
	ExpensesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripper_expenses_created_total",
		Help: "Expenses successfully created.",
	})

	// SettlementsSettled counts confirmed settlement payments, full or
	// partial.
	SettlementsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripper_settlements_settled_total",
		Help: "Settlement payments confirmed.",
	})

	// VersionConflicts counts mutations rejected by the optimistic
	// concurrency guard.
	VersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripper_version_conflicts_total",
		Help: "Mutations rejected because the trip changed concurrently.",
	})
)

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route string, status int, duration time.Duration) {
	requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
