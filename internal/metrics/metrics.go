package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WatchSessionsActive tracks the number of open watch sessions
	WatchSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "owatch_watch_sessions_active",
		Help: "The number of watch sessions currently open",
	})

	// ProgressSyncsTotal tracks remote progress writes by status
	ProgressSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owatch_progress_syncs_total",
			Help: "The total number of video progress sync writes",
		},
		[]string{"status"}, // success, failed
	)

	// VideoCompletionsTotal tracks fired completions
	VideoCompletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "owatch_video_completions_total",
		Help: "The total number of video completions detected",
	})

	// PointsAwardedTotal tracks ledger credits by source
	PointsAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owatch_points_awarded_total",
			Help: "The total number of points awarded",
		},
		[]string{"source"},
	)

	// ClaimsTotal tracks on-chain claims by terminal status
	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owatch_claims_total",
			Help: "The total number of on-chain claim attempts",
		},
		[]string{"status"}, // success, failed
	)

	// WebsocketClients tracks connected websocket clients
	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "owatch_websocket_clients",
		Help: "The number of connected websocket clients",
	})
)

// RecordProgressSync records a progress sync write with the given status
func RecordProgressSync(status string) {
	ProgressSyncsTotal.WithLabelValues(status).Inc()
}

// RecordPointsAwarded records awarded points for a ledger source
func RecordPointsAwarded(source string, amount int64) {
	PointsAwardedTotal.WithLabelValues(source).Add(float64(amount))
}

// RecordClaim records a finished claim attempt
func RecordClaim(status string) {
	ClaimsTotal.WithLabelValues(status).Inc()
}
