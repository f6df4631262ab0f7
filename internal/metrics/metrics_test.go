package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveProbeDisabledIsNoop(t *testing.T) {
	metricsEnabled.Store(false)
	ObserveProbe("response", "disabled_class", time.Millisecond)

	got := testutil.ToFloat64(GetMetrics().ProbesTotal.WithLabelValues("disabled_class"))
	if got != 0 {
		t.Fatalf("expected no samples while disabled, got %v", got)
	}
}

func TestObserveProbeCountsByClass(t *testing.T) {
	EnableMetrics()
	t.Cleanup(func() { metricsEnabled.Store(false) })

	ObserveProbe("response", "for_sale", 10*time.Millisecond)
	ObserveProbe("response", "for_sale", 20*time.Millisecond)
	ObserveProbe("timeout", "timeout", time.Second)

	m := GetMetrics()
	if got := testutil.ToFloat64(m.ProbesTotal.WithLabelValues("for_sale")); got != 2 {
		t.Fatalf("for_sale count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ProbesTotal.WithLabelValues("timeout")); got != 1 {
		t.Fatalf("timeout count = %v, want 1", got)
	}
}

func TestWorkerMetricsUseDecimalIDs(t *testing.T) {
	EnableMetrics()
	t.Cleanup(func() { metricsEnabled.Store(false) })

	m := GetMetrics()
	m.UpdateQueueMetrics(3, 10)
	m.RecordWorkerDone(12, true)

	if got := testutil.ToFloat64(m.QueueSize); got != 3 {
		t.Fatalf("queue size = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.QueueCapacity); got != 10 {
		t.Fatalf("queue capacity = %v, want 10", got)
	}
	if got := testutil.ToFloat64(m.WorkerPanics.WithLabelValues("12")); got != 1 {
		t.Fatalf("panics = %v, want 1", got)
	}
}

func TestMeasureDuration(t *testing.T) {
	EnableMetrics()
	t.Cleanup(func() { metricsEnabled.Store(false) })

	m := GetMetrics()
	done := MeasureDuration(m.ExportDuration, prometheus.Labels{"format": "measure_test"})
	done()

	if n := testutil.CollectAndCount(m.ExportDuration, "saleprobe_export_duration_seconds"); n == 0 {
		t.Fatalf("expected an export duration series")
	}
}
