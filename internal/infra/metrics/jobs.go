// File: internal/infra/metrics/jobs.go
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(jobRunsTotal, jobDurationMs, jobLockSkipsTotal)
}

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Scheduled job runs by job name and outcome.",
		},
		[]string{"job", "success"},
	)

	jobDurationMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_ms",
			Help:    "Scheduled job run duration distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"job"},
	)

	jobLockSkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_lock_skips_total",
			Help: "Job runs skipped because another instance held the lock.",
		},
		[]string{"job"},
	)
)

func ObserveJobRun(job string, durationMs int64, success bool) {
	jobRunsTotal.WithLabelValues(norm(job), strconv.FormatBool(success)).Inc()
	jobDurationMs.WithLabelValues(norm(job)).Observe(float64(durationMs))
}

func IncJobLockSkip(job string) {
	jobLockSkipsTotal.WithLabelValues(norm(job)).Inc()
}
