// Package metrics exposes the bot's Prometheus collectors and the small HTTP
// server that publishes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reactcheck"

var (
	ChecksStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checks_started_total",
		Help:      "Reaction checks started, by mode.",
	}, []string{"mode"})

	ChecksCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checks_cancelled_total",
		Help:      "Reaction checks cancelled before they expired.",
	})

	ChecksExpired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checks_expired_total",
		Help:      "Expired reaction checks processed, by outcome.",
	}, []string{"outcome"})

	ReportsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_messages_sent_total",
		Help:      "Non-reactor report messages posted.",
	})

	ActiveChecks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_checks",
		Help:      "Reaction checks currently being tracked.",
	})
)

func init() {
	prometheus.MustRegister(ChecksStarted, ChecksCancelled, ChecksExpired, ReportsSent, ActiveChecks)
}
