// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the turn pipeline.
// Labels carry bounded enumerations only; conversation ids never appear
// as label values.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/validation"
)

var (
	// TurnsTotal counts processed turns by channel and outcome
	// (final, transfer, error, busy).
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxdesk_turns_total",
		Help: "Total number of processed turns, by channel and outcome.",
	}, []string{"channel", "outcome"})

	// ValidatorRejectTotal counts output-firewall rejections by the state
	// the reply was produced for and the safety class that failed.
	ValidatorRejectTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxdesk_validator_reject_total",
		Help: "Total number of candidate replies rejected by the output validator, by state and class.",
	}, []string{"state", "class"})

	// TransferTotal counts human handoffs by reason.
	TransferTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxdesk_transfer_total",
		Help: "Total number of transfers to a human, by reason.",
	}, []string{"reason"})

	// TransferPreventedTotal counts would-be transfers absorbed by the
	// prevention budget.
	TransferPreventedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxdesk_transfer_prevented_total",
		Help: "Total number of transfers absorbed by the prevention budget.",
	})

	// EscalationTotal counts recovery-counter ceilings crossed, by counter.
	EscalationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxdesk_escalation_total",
		Help: "Total number of recovery-counter ceilings crossed, by counter name.",
	}, []string{"counter"})

	// LLMFallbackTotal counts gated classifier-fallback attempts by result
	// (accepted, rejected, unavailable).
	LLMFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxdesk_llm_fallback_total",
		Help: "Total number of LLM classifier fallback attempts, by result.",
	}, []string{"result"})

	// OverlayTotal counts overlay interceptions by result (served, rejected).
	OverlayTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxdesk_overlay_total",
		Help: "Total number of conversational overlay attempts, by result.",
	}, []string{"result"})

	// TurnDuration observes end-to-end turn handling latency.
	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxdesk_turn_duration_seconds",
		Help:    "End-to-end turn handling duration in seconds.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})
)

// RecordTurn increments the turn counter.
func RecordTurn(channel dialog.Channel, outcome string) {
	TurnsTotal.WithLabelValues(string(channel), outcome).Inc()
}

// RecordTransfer increments the transfer counter.
func RecordTransfer(reason dialog.TransferReason) {
	TransferTotal.WithLabelValues(string(reason)).Inc()
}

// RecordEscalation increments the escalation counter for a named
// recovery counter.
func RecordEscalation(counter string) {
	EscalationTotal.WithLabelValues(counter).Inc()
}

// Reporter adapts the validator's rejection callback onto Prometheus.
type Reporter struct{}

// ValidatorRejected implements validation.Reporter.
func (Reporter) ValidatorRejected(state dialog.State, class validation.Class, _, _ string) {
	ValidatorRejectTotal.WithLabelValues(string(state), string(class)).Inc()
}

var _ validation.Reporter = Reporter{}
