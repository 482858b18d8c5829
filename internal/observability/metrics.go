package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "carpool"

var (
	TripsCreated = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "trips_created_total", Help: "Trips offered by drivers"})
	TripRequests = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "trip_requests_total", Help: "Passenger requests submitted"})
	TripsLapsed  = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "trips_lapsed_total", Help: "Active trips completed lazily after their arrival time"})

	RequestDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "request_decisions_total", Help: "Driver decisions on requests"},
		[]string{"decision"},
	)
	TripCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "trip_completions_total", Help: "Trips moved to completed, by reason"},
		[]string{"reason"},
	)
	Confirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "confirmations_total", Help: "Pickup confirmations recorded"},
		[]string{"role"},
	)
	Ratings = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ratings_total", Help: "Ratings recorded, by rater role"},
		[]string{"role"},
	)
	VersionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "trip_version_conflicts_total", Help: "Conditional trip writes that lost a race"},
		[]string{"operation"},
	)
	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "event_publish_failures_total", Help: "Events that could not be published"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
