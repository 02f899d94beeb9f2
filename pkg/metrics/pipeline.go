package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records ingest and redaction pipeline activity.
type PipelineMetrics struct {
	ingestDuration  *prometheus.HistogramVec
	ingestSuccess   *prometheus.CounterVec
	ingestFailure   *prometheus.CounterVec
	pagesRasterized prometheus.Counter
	regionsRedacted prometheus.Histogram
	classifyErrors  prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	ingestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_duration_seconds",
		Help:    "Duration of document ingestion jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	ingestSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_success",
		Help: "Successful document ingestion jobs.",
	}, []string{"worker"})
	ingestFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_failure",
		Help: "Failed document ingestion jobs.",
	}, []string{"worker"})
	pagesRasterized := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pages_rasterized_total",
		Help: "Pages rasterized and persisted by ingestion.",
	})
	regionsRedacted := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "redaction_regions_per_page",
		Help:    "Redacted region count per processed page.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})
	classifyErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "classification_errors_total",
		Help: "Per-fragment classification failures absorbed by the engine.",
	})
	reg.MustRegister(ingestDuration, ingestSuccess, ingestFailure, pagesRasterized, regionsRedacted, classifyErrors)
	return &PipelineMetrics{
		ingestDuration:  ingestDuration,
		ingestSuccess:   ingestSuccess,
		ingestFailure:   ingestFailure,
		pagesRasterized: pagesRasterized,
		regionsRedacted: regionsRedacted,
		classifyErrors:  classifyErrors,
	}
}

// ObserveIngestDuration records how long an ingestion job ran.
func (p *PipelineMetrics) ObserveIngestDuration(outcome string, duration time.Duration) {
	if p == nil || p.ingestDuration == nil {
		return
	}
	p.ingestDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncIngestSuccess increments the success counter for the named worker.
func (p *PipelineMetrics) IncIngestSuccess(worker string) {
	if p == nil || p.ingestSuccess == nil {
		return
	}
	p.ingestSuccess.WithLabelValues(normalizeLabel(worker)).Inc()
}

// IncIngestFailure increments the failure counter for the named worker.
func (p *PipelineMetrics) IncIngestFailure(worker string) {
	if p == nil || p.ingestFailure == nil {
		return
	}
	p.ingestFailure.WithLabelValues(normalizeLabel(worker)).Inc()
}

// AddPagesRasterized records pages persisted by an ingestion job.
func (p *PipelineMetrics) AddPagesRasterized(n int) {
	if p == nil || p.pagesRasterized == nil || n <= 0 {
		return
	}
	p.pagesRasterized.Add(float64(n))
}

// ObserveRegionsRedacted records the region count of one processed page.
func (p *PipelineMetrics) ObserveRegionsRedacted(n int) {
	if p == nil || p.regionsRedacted == nil {
		return
	}
	p.regionsRedacted.Observe(float64(n))
}

// IncClassificationError counts an absorbed per-fragment classifier failure.
func (p *PipelineMetrics) IncClassificationError() {
	if p == nil || p.classifyErrors == nil {
		return
	}
	p.classifyErrors.Inc()
}

func normalizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
