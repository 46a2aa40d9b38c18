package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(sideEffectsTotal, scheduledRunsTotal) }

var (
	sideEffectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "side_effects_total",
			Help: "Best-effort side effects run after a payment commit, labeled by effect and status.",
		},
		[]string{"effect", "status"}, // status: 'ok', 'failed', 'dropped'
	)

	scheduledRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_runs_total",
			Help: "Background sweep runs, labeled by job and status.",
		},
		[]string{"job", "status"},
	)
)

func IncSideEffect(effect, status string) {
	sideEffectsTotal.WithLabelValues(norm(effect), norm(status)).Inc()
}

func IncScheduledRun(job, status string) {
	scheduledRunsTotal.WithLabelValues(norm(job), norm(status)).Inc()
}
