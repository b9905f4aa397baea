package executor

import "github.com/prometheus/client_golang/prometheus"

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "executor",
			Name:      "commands_total",
			Help:      "Commands received by type",
		},
		[]string{"type"},
	)

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "executor",
			Name:      "events_total",
			Help:      "Events emitted by status",
		},
		[]string{"status"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "executor",
			Name:      "generations_total",
			Help:      "Finished generations by outcome (completed, interrupted, error)",
		},
		[]string{"outcome"},
	)

	generatedTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "executor",
			Name:      "generated_tokens_total",
			Help:      "Tokens produced across all generations",
		},
	)

	loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chatd",
			Subsystem: "executor",
			Name:      "load_duration_seconds",
			Help:      "Time to make a model resident, including downloads and warm-up",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
)

func init() {
	prometheus.MustRegister(commandsTotal, eventsTotal, generationsTotal, generatedTokensTotal, loadDuration)
}
