package services

import (
	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
)

// Lobby entry outcomes reported to the metrics recorder.
const (
	OutcomeBypass   = "bypass"
	OutcomeWaiting  = "waiting"
	OutcomeAccepted = "accepted"
	OutcomeDenied   = "denied"
)

type nopMetrics struct{}

func (nopMetrics) LobbyEntry(string)                     {}
func (nopMetrics) EntryDecision(bool)                    {}
func (nopMetrics) Notification(domain.NotifyMode, error) {}
func (nopMetrics) WebhookEvent(string, error)            {}
func (nopMetrics) CorruptedEntryPurged()                 {}

// metricsOrNop lets services be built without an exporter.
func metricsOrNop(m ports.MetricsRecorder) ports.MetricsRecorder {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
