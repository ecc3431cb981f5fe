// Package metrics defines the Prometheus collectors for upstream API calls
// and sync runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the sync pipeline

var (
	// Upstream API call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoopsync_api_calls_total",
			Help: "Total number of upstream API calls",
		},
		[]string{"provider", "endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hoopsync_api_call_duration_seconds",
			Help:    "Duration of upstream API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoopsync_api_retries_total",
			Help: "Total number of upstream requests retried after a 429",
		},
		[]string{"provider"},
	)

	// Pipeline metrics
	PlayersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoopsync_players_processed_total",
			Help: "Players processed by the sync pipeline, by outcome",
		},
		[]string{"outcome"},
	)

	ImagesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hoopsync_images_uploaded_total",
			Help: "Total number of player headshots uploaded to object storage",
		},
	)

	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoopsync_sync_runs_total",
			Help: "Total number of sync runs, by final status",
		},
		[]string{"status"},
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hoopsync_sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 2400},
		},
	)

	SyncInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hoopsync_sync_in_progress",
			Help: "1 while a sync run is active",
		},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hoopsync_last_successful_sync_timestamp",
			Help: "Timestamp of last successful sync run",
		},
	)
)

// RecordAPICall records an upstream API call metric.
func RecordAPICall(provider, endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(provider, endpoint, status).Inc()
	APICallDuration.WithLabelValues(provider, endpoint).Observe(duration)
}

// RecordRetry records a rate-limit retry.
func RecordRetry(provider string) {
	APIRetriesTotal.WithLabelValues(provider).Inc()
}

// RecordPlayer records one processed player.
func RecordPlayer(outcome string) {
	PlayersProcessed.WithLabelValues(outcome).Inc()
}

// RecordImageUpload records an uploaded headshot.
func RecordImageUpload() {
	ImagesUploaded.Inc()
}

// RecordSync records a finished sync run. status is "success", "aborted" or "error".
func RecordSync(status string, duration float64) {
	SyncRunsTotal.WithLabelValues(status).Inc()
	SyncDuration.Observe(duration)

	if status == "success" {
		LastSuccessfulSync.SetToCurrentTime()
	}
}

// SetSyncing flips the in-progress gauge.
func SetSyncing(active bool) {
	if active {
		SyncInProgress.Set(1)
		return
	}
	SyncInProgress.Set(0)
}
