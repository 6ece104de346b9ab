// Package metrics defines the Prometheus metrics served on /metrics.
//
// Naming follows Prometheus conventions: eventcollab_ prefix for all custom
// metrics, _total suffix for counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method and status class.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventcollab_http_requests_total",
			Help: "Total HTTP requests by method and status.",
		},
		[]string{"method", "status"},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventcollab_rate_limited_total",
			Help: "Total requests rejected with 429.",
		},
	)

	// PermissionChecksTotal counts permission evaluations by capability
	// and decision.
	PermissionChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventcollab_permission_checks_total",
			Help: "Total permission checks by capability and decision.",
		},
		[]string{"capability", "decision"},
	)

	// WSSessions tracks live realtime sessions.
	WSSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventcollab_ws_sessions",
			Help: "Number of live realtime sessions.",
		},
	)

	// ChatMessagesTotal counts persisted chat messages.
	ChatMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventcollab_chat_messages_total",
			Help: "Total chat messages persisted.",
		},
	)
)

// Decision converts an allow/deny bool to a metric label.
func Decision(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "deny"
}
