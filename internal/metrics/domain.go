package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	strategyAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ltgsite",
			Subsystem: "jobs",
			Name:      "strategy_attempts_total",
			Help:      "Job store attempts per operation, column strategy and outcome.",
		},
		[]string{"op", "strategy", "outcome"},
	)

	mailSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ltgsite",
			Name:      "mail_sent_total",
			Help:      "Mails handed to the mail provider.",
		},
		[]string{"type", "outcome"},
	)

	intakeSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ltgsite",
			Name:      "intake_submissions_total",
			Help:      "Public form submissions by request type and outcome.",
		},
		[]string{"type", "outcome"},
	)
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// ObserveStrategy counts one attempt of a schema-fallback chain.
func ObserveStrategy(op, strategy string, err error) {
	strategyAttempts.WithLabelValues(op, strategy, outcome(err)).Inc()
}

// ObserveMail counts one mail send.
func ObserveMail(requestType string, err error) {
	mailSent.WithLabelValues(requestType, outcome(err)).Inc()
}

// ObserveIntake counts one public submission. kind is the errcode kind name
// for failures.
func ObserveIntake(requestType, kind string) {
	intakeSubmissions.WithLabelValues(requestType, kind).Inc()
}
