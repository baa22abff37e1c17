package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hostagent",
		Name:      "commands_total",
		Help:      "Number of commands handled, partitioned by command and result.",
	}, []string{"command", "result"})

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hostagent",
		Name:      "command_duration_seconds",
		Help:      "Time spent handling a command.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 4, 10),
	}, []string{"command"})

	commandPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hostagent",
		Name:      "command_panics_total",
		Help:      "Number of handler panics recovered.",
	}, []string{"command"})
)

func observe(name string, result bool, seconds float64) {
	label := "false"
	if result {
		label = "true"
	}
	commandsTotal.WithLabelValues(name, label).Inc()
	commandDuration.WithLabelValues(name).Observe(seconds)
}
