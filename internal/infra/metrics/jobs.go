package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, jobsInRegistry, jobsCleanedTotal, jobsRejectedTotal) }

var (
	jobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyword_jobs_processed_total",
			Help: "Total number of generation jobs processed, labeled by terminal status.",
		},
		[]string{"status"}, // 'completed', 'failed'
	)

	jobsInRegistry = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "keyword_jobs_in_registry",
			Help: "Jobs currently held in memory.",
		},
	)

	jobsCleanedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keyword_jobs_cleaned_total",
			Help: "Jobs evicted by cleanup sweeps.",
		},
	)

	jobsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyword_jobs_rejected_total",
			Help: "Job submissions refused before running, by reason.",
		},
		[]string{"reason"}, // 'invalid', 'rate_limited', 'queue_full'
	)
)

func IncJob(status string) {
	jobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func SetJobsInRegistry(n int) {
	jobsInRegistry.Set(float64(n))
}

func AddJobsCleaned(n int) {
	jobsCleanedTotal.Add(float64(n))
}

func IncJobRejected(reason string) {
	jobsRejectedTotal.WithLabelValues(norm(reason)).Inc()
}
