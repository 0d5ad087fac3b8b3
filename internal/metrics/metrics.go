package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "readmegen"

// Recorder counts fetch and generate outcomes. It satisfies workflow.Observer.
type Recorder struct {
	reg              *prom.Registry
	fetchResults     *prom.CounterVec
	fetchDuration    prom.Histogram
	generateResults  *prom.CounterVec
	generateDuration prom.Histogram
	sessions         prom.Gauge
}

// NewRecorder registers collectors on a fresh registry, including the Go and
// process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{reg: prom.NewRegistry()}
	r.fetchResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_results_total",
		Help:      "Repository fetches by outcome",
	}, []string{"outcome"})
	r.fetchDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Duration of repository metadata requests",
		Buckets:   prom.DefBuckets,
	})
	r.generateResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "generate_results_total",
		Help:      "README generations by outcome",
	}, []string{"outcome"})
	r.generateDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "generate_duration_seconds",
		Help:      "Duration of README generation requests",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	})
	r.sessions = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Web sessions currently held in memory",
	})
	r.reg.MustRegister(r.fetchResults, r.fetchDuration, r.generateResults, r.generateDuration, r.sessions)
	r.reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return r
}

// ObserveFetch records one fetch outcome. Zero durations (rejected before
// any request) are counted but not timed.
func (r *Recorder) ObserveFetch(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.fetchResults.WithLabelValues(outcome).Inc()
	if d > 0 {
		r.fetchDuration.Observe(d.Seconds())
	}
}

// ObserveGenerate records one generation outcome.
func (r *Recorder) ObserveGenerate(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.generateResults.WithLabelValues(outcome).Inc()
	if d > 0 {
		r.generateDuration.Observe(d.Seconds())
	}
}

// SetSessions reports the number of live sessions.
func (r *Recorder) SetSessions(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prom.Registry { return r.reg }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
