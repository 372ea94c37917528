// Package metrics, Prometheus metriklerini tanımlar.
// Collector'lar promauto ile default registry'ye kaydolur, /metrics endpoint'i
// promhttp.Handler() ile sunulur.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration, HTTP istek süreleri.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "huddle_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal, toplam HTTP istek sayısı.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MessagesAppended, ledger'a eklenen mesajlar (tipe göre).
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_messages_appended_total",
			Help: "Messages appended to conversation ledgers",
		},
		[]string{"type"},
	)

	// NotificationsCreated, fan-out ile oluşturulan bildirimler.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_notifications_created_total",
			Help: "Notifications created by fan-out",
		},
		[]string{"type"},
	)

	// SinkFailures, downstream sink teslim hataları.
	SinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_notification_sink_failures_total",
			Help: "Failed deliveries to downstream notification sinks",
		},
		[]string{"sink"},
	)

	// SessionsActive, açık gateway session sayısı.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "huddle_gateway_sessions_active",
			Help: "Number of active realtime sessions",
		},
	)

	// BroadcastDropped, buffer dolu olduğu için düşürülen event'ler.
	BroadcastDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_gateway_broadcast_dropped_total",
			Help: "Events dropped because a session send buffer was full",
		},
	)

	// CommandsRejected, worker kuyruğu dolu olduğu için reddedilen komutlar.
	CommandsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "huddle_gateway_commands_rejected_total",
			Help: "Commands rejected because the worker queue was full",
		},
	)

	// PresenceTransitions, presence durum geçişleri.
	PresenceTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_presence_transitions_total",
			Help: "Presence status transitions",
		},
		[]string{"status"},
	)
)

// RecordRequest, bir HTTP isteğinin metriklerini kaydeder.
func RecordRequest(method, path, status string, seconds float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(seconds)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}
