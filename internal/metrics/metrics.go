// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

// Package metrics holds the Prometheus collectors for the photo pipeline.
//
// All collectors register against the default registry via promauto and are
// served by the /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// Webhook Metrics
	WebhookRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photowall_webhook_requests_total",
			Help: "Total number of inbound webhook deliveries",
		},
		[]string{"kind", "outcome"}, // kind: "mms", "instagram"; outcome: "accepted", "empty", "rejected"
	)

	MediaReferencesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photowall_media_references_total",
			Help: "Total number of media references handed to the downloader",
		},
		[]string{"source"}, // "mms", "instagram_push", "instagram_poll"
	)

	SequenceNumbersReserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photowall_sequence_numbers_reserved_total",
			Help: "Total number of sequence numbers reserved per collection type",
		},
		[]string{"collection_type"},
	)

	// Download Metrics
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photowall_downloads_total",
			Help: "Total number of media downloads by outcome",
		},
		[]string{"collection_type", "outcome"}, // outcome: "success", "failure"
	)

	DownloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photowall_download_duration_seconds",
			Help:    "Duration of media downloads in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	DownloadsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photowall_downloads_in_flight",
			Help: "Current number of downloads in progress",
		},
	)

	// Instagram pipeline
	TagFilterRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photowall_tag_filter_rejections_total",
			Help: "Total number of Instagram items dropped by the required tag filter",
		},
	)

	CredentialFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photowall_credential_fallbacks_total",
			Help: "Total number of notifications processed with the default access token",
		},
	)

	DuplicateNotifications = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photowall_duplicate_notifications_total",
			Help: "Total number of content notifications skipped as duplicates",
		},
	)

	InstagramAPIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photowall_instagram_api_requests_total",
			Help: "Total number of Instagram API requests",
		},
		[]string{"endpoint", "status"},
	)

	InstagramRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photowall_instagram_rate_limited_total",
			Help: "Total number of Instagram API responses with status 429",
		},
	)

	// Poller Metrics
	PollTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photowall_poll_ticks_total",
			Help: "Total number of tag poll iterations by outcome",
		},
		[]string{"outcome"}, // "empty", "advanced", "error"
	)

	PollCursorAdvances = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photowall_poll_cursor_advances_total",
			Help: "Total number of persisted poll cursor advances",
		},
	)

	PollState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photowall_poll_state",
			Help: "Poller state (0=idle, 1=polling)",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_broadcasts_total",
			Help: "Total number of WebSocket messages broadcast",
		},
		[]string{"type"},
	)

	BroadcastDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_broadcast_dropped_total",
			Help: "Total number of messages dropped for slow WebSocket clients",
		},
	)

	// Event bus
	EventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photowall_events_published_total",
			Help: "Total number of media stored events published",
		},
	)

	EventsForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photowall_events_forwarded_total",
			Help: "Total number of media stored events forwarded to WebSocket clients",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request counter
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordWebhook counts one inbound webhook delivery.
func RecordWebhook(kind, outcome string) {
	WebhookRequestsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordReferences counts media references emitted by an ingestor.
func RecordReferences(source string, n int) {
	if n <= 0 {
		return
	}
	MediaReferencesTotal.WithLabelValues(source).Add(float64(n))
}

// RecordDownload records the outcome of a single download.
func RecordDownload(collectionType string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	DownloadsTotal.WithLabelValues(collectionType, outcome).Inc()
	DownloadDuration.Observe(duration.Seconds())
}

// RecordInstagramRequest records an Instagram API call. status is the HTTP
// status code or "error" when no response was received.
func RecordInstagramRequest(endpoint, status string) {
	InstagramAPIRequests.WithLabelValues(endpoint, status).Inc()
	if status == "429" {
		InstagramRateLimited.Inc()
	}
}

// RecordPollTick records one poll iteration.
func RecordPollTick(outcome string) {
	PollTicksTotal.WithLabelValues(outcome).Inc()
}

// SetPollState sets the poller state gauge.
func SetPollState(polling bool) {
	if polling {
		PollState.Set(1)
	} else {
		PollState.Set(0)
	}
}

// RecordBroadcast counts a broadcast message of the given type.
func RecordBroadcast(msgType string) {
	BroadcastsTotal.WithLabelValues(msgType).Inc()
}
