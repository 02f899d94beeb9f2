package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func TestPipelineMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.IncIngestSuccess("ingest-1")
	m.IncIngestSuccess("ingest-1")
	m.IncIngestFailure("ingest-2")
	m.AddPagesRasterized(5)
	m.ObserveRegionsRedacted(3)
	m.ObserveIngestDuration("success", 2*time.Second)
	m.IncClassificationError()

	success := gatherMetric(t, reg, "ingest_success")
	if got := success.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("ingest_success = %v, want 2", got)
	}
	if got := success.GetMetric()[0].GetLabel()[0].GetValue(); got != "ingest-1" {
		t.Fatalf("worker label = %q", got)
	}

	pages := gatherMetric(t, reg, "pages_rasterized_total")
	if got := pages.GetMetric()[0].GetCounter().GetValue(); got != 5 {
		t.Fatalf("pages_rasterized_total = %v, want 5", got)
	}

	regions := gatherMetric(t, reg, "redaction_regions_per_page")
	if got := regions.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Fatalf("redaction_regions_per_page samples = %d, want 1", got)
	}

	errsFamily := gatherMetric(t, reg, "classification_errors_total")
	if got := errsFamily.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Fatalf("classification_errors_total = %v, want 1", got)
	}
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	var m *PipelineMetrics

	m.IncIngestSuccess("w")
	m.IncIngestFailure("w")
	m.AddPagesRasterized(1)
	m.ObserveRegionsRedacted(1)
	m.ObserveIngestDuration("success", time.Second)
	m.IncClassificationError()

	unregistered := NewPipelineMetrics(nil)
	unregistered.IncIngestSuccess("w")
}

func TestNormalizeLabel(t *testing.T) {
	if got := normalizeLabel(""); got != "unknown" {
		t.Fatalf("normalizeLabel(\"\") = %q", got)
	}
	if got := normalizeLabel("ingest-1"); got != "ingest-1" {
		t.Fatalf("normalizeLabel passthrough = %q", got)
	}
}
