// Package metrics records run counters on a private Prometheus registry. The
// CLI dumps them in the text exposition format when asked to.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wp2md"

// Recorder holds the counters of one run.
type Recorder struct {
	registry   *prometheus.Registry
	posts      *prometheus.CounterVec
	images     *prometheus.CounterVec
	dropped    prometheus.Counter
	collisions prometheus.Counter
	stages     *prometheus.HistogramVec
	duration   prometheus.Gauge
}

// New creates a recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_total",
			Help:      "Posts by final status.",
		}, []string{"status"}),
		images: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_total",
			Help:      "Image files by download outcome.",
		}, []string{"outcome"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "categories_dropped_total",
			Help:      "Category assignments outside the vocabulary.",
		}),
		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_collisions_total",
			Help:      "Posts written to a path another post already used.",
		}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	r.registry.MustRegister(r.posts, r.images, r.dropped, r.collisions, r.stages, r.duration)
	return r
}

// Post counts one post with status.
func (r *Recorder) Post(status string) {
	r.posts.WithLabelValues(status).Inc()
}

// Images adds n image files with outcome.
func (r *Recorder) Images(outcome string, n int) {
	if n > 0 {
		r.images.WithLabelValues(outcome).Add(float64(n))
	}
}

// DroppedCategories adds n dropped category assignments.
func (r *Recorder) DroppedCategories(n int) {
	if n > 0 {
		r.dropped.Add(float64(n))
	}
}

// Collision counts one output path collision.
func (r *Recorder) Collision() {
	r.collisions.Inc()
}

// Stage observes the duration of a pipeline stage.
func (r *Recorder) Stage(stage string, d time.Duration) {
	r.stages.WithLabelValues(stage).Observe(d.Seconds())
}

// Duration records the wall time of the run.
func (r *Recorder) Duration(d time.Duration) {
	r.duration.Set(d.Seconds())
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteFile writes the metrics to path in the text exposition format, as
// read by the node exporter textfile collector.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
