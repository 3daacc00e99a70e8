package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsStarted counts jobs handed to a worker.
	JobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadreel_jobs_started_total",
		Help: "Render jobs picked up by a worker",
	})

	// JobsFinished counts jobs that reached a terminal status.
	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadreel_jobs_finished_total",
		Help: "Render jobs that reached a terminal status",
	}, []string{"status"})

	JobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threadreel_jobs_in_flight",
		Help: "Render jobs currently executing",
	})

	QueueRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadreel_jobs_queue_rejected_total",
		Help: "Jobs marked error because the work queue was full",
	})

	// StageDuration tracks how long each pipeline stage takes.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threadreel_stage_duration_seconds",
		Help:    "Duration of render pipeline stages",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 12), // 50ms to ~100s
	}, []string{"stage"})

	SourceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadreel_source_fetch_total",
		Help: "Content source fetches by result",
	}, []string{"result"})
)

// ObserveStage records the time elapsed since start for stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
