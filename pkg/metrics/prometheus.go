package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	analysesTotal *prometheus.CounterVec
	analysisSize  prometheus.Histogram
	analysisTime  prometheus.Histogram
	cacheLookups  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a Prometheus recorder registered on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		analysesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincorr_analyses_total",
				Help: "Correlation analyses by result",
			},
			[]string{"result"},
		),
		analysisSize: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fincorr_analysis_tickers",
				Help:    "Universe size of completed analyses",
				Buckets: []float64{2, 5, 10, 20, 50, 100, 200},
			},
		),
		analysisTime: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fincorr_analysis_duration_seconds",
				Help:    "End-to-end analysis duration",
				Buckets: prometheus.DefBuckets,
			},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincorr_session_cache_lookups_total",
				Help: "Session cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincorr_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincorr_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordAnalysis records one analysis attempt.
func (r *Recorder) RecordAnalysis(result string, tickers int, seconds float64) {
	r.analysesTotal.WithLabelValues(result).Inc()
	if result == "ok" {
		r.analysisSize.Observe(float64(tickers))
		r.analysisTime.Observe(seconds)
	}
}

// RecordCacheLookup records a session cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordAnalysis(string, int, float64) {}
func (Nop) RecordCacheLookup(bool)              {}
func (Nop) RecordError(string)                  {}
func (Nop) RecordLatency(string, float64)       {}
