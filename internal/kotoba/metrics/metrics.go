// Package metrics exposes Prometheus counters for command handling.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kotoba_commands_total",
			Help: "Commands dispatched, by agent, intent and result",
		},
		[]string{"agent", "intent", "result"},
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kotoba_command_duration_seconds",
			Help:    "Time from message receipt to ActionResult, in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"agent"},
	)

	MessagesIgnored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kotoba_messages_ignored_total",
			Help: "Messages that no agent recognized, or that were dropped before matching",
		},
		[]string{"reason"},
	)
)

// ObserveCommand records one dispatched command.
func ObserveCommand(agent, intent, result string, elapsed time.Duration) {
	CommandsTotal.WithLabelValues(agent, intent, result).Inc()
	CommandDuration.WithLabelValues(agent).Observe(elapsed.Seconds())
}

// Ignored records a message that produced no command.
func Ignored(reason string) {
	MessagesIgnored.WithLabelValues(reason).Inc()
}

// Reasons passed to Ignored.
const (
	ReasonNoMatch     = "no_match"
	ReasonRateLimited = "rate_limited"
)
