package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/pkg/circuitbreaker"
)

// PrometheusCollector exports lobby and webhook outcomes. It implements
// ports.MetricsRecorder.
type PrometheusCollector struct {
	lobbyEntries     *prometheus.CounterVec
	entryDecisions   *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	corruptedEntries prometheus.Counter
	breakerState     *prometheus.GaugeVec
}

// NewPrometheusCollector registers the collector's metrics on reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		lobbyEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meet_lobby_entries_total",
			Help: "Lobby entry requests by outcome",
		}, []string{"outcome"}),

		entryDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meet_lobby_decisions_total",
			Help: "Owner decisions on waiting participants",
		}, []string{"decision"}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meet_notifications_total",
			Help: "Realtime notifications by delivery mode and result",
		}, []string{"mode", "result"}),

		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meet_webhook_events_total",
			Help: "Webhook events processed by type and result",
		}, []string{"event", "result"}),

		corruptedEntries: factory.NewCounter(prometheus.CounterOpts{
			Name: "meet_lobby_corrupted_entries_purged_total",
			Help: "Undecodable lobby entries deleted from the store",
		}),

		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "meet_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		}, []string{"breaker"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *PrometheusCollector) LobbyEntry(outcome string) {
	p.lobbyEntries.WithLabelValues(outcome).Inc()
}

func (p *PrometheusCollector) EntryDecision(allowed bool) {
	decision := "denied"
	if allowed {
		decision = "accepted"
	}
	p.entryDecisions.WithLabelValues(decision).Inc()
}

func (p *PrometheusCollector) Notification(mode domain.NotifyMode, err error) {
	p.notifications.WithLabelValues(mode.String(), result(err)).Inc()
}

func (p *PrometheusCollector) WebhookEvent(event string, err error) {
	p.webhookEvents.WithLabelValues(event, result(err)).Inc()
}

func (p *PrometheusCollector) CorruptedEntryPurged() {
	p.corruptedEntries.Inc()
}

// BreakerStateChanged matches reliability.StateObserver.
func (p *PrometheusCollector) BreakerStateChanged(name string, _, to circuitbreaker.State) {
	p.breakerState.WithLabelValues(name).Set(float64(to))
}
