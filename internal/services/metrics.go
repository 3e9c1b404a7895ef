// Package services – domain metrics.
//
// Counters for the intake funnel and the operator notification path. Label
// cardinality is bounded: the only labelled counter uses the fixed set of
// intake field names.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// intakeStarted counts sessions entering the intake flow.
	intakeStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intake_sessions_started_total",
		Help: "Total number of intake sessions started.",
	})

	// intakeCompleted counts confirmed, persisted requests.
	intakeCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intake_requests_completed_total",
		Help: "Total number of repair requests confirmed and persisted.",
	})

	// intakeDenied counts confirmation rejections ("no" at the summary).
	intakeDenied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intake_confirmations_denied_total",
		Help: "Total number of intake summaries rejected by the user.",
	})

	// intakeRejected counts per-field validation re-prompts.
	intakeRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_validation_rejects_total",
		Help: "Total number of inputs rejected by field validation.",
	}, []string{"field"})

	// notifyFailures counts operator notifications that could not be sent.
	notifyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "operator_notify_failures_total",
		Help: "Total number of failed operator notifications.",
	})
)

func init() {
	prometheus.MustRegister(intakeStarted, intakeCompleted, intakeDenied, intakeRejected, notifyFailures)
}
