package metrics

/*
saleprobe — finds company websites whose domains are parked for sale
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry           = prometheus.NewRegistry()
	defaultRegisterer  = promauto.With(registry)
	metricsInitialized sync.Once
	metricsEnabled     atomic.Bool
	metricsServer      *http.Server
)

// Metrics contains all the Prometheus metrics for the application
type Metrics struct {
	// Probe metrics
	ProbeDuration *prometheus.HistogramVec
	ProbesTotal   *prometheus.CounterVec

	// Queue metrics
	QueueSize     prometheus.Gauge
	QueueCapacity prometheus.Gauge

	// Worker metrics
	WorkerBusy      *prometheus.GaugeVec
	WorkerProcessed *prometheus.CounterVec
	WorkerPanics    *prometheus.CounterVec

	// Scheduler metrics
	SchedulerWorkSubmitted *prometheus.CounterVec
	SchedulerWorkCompleted *prometheus.CounterVec

	// Pipeline metrics
	SourceRowsTotal *prometheus.CounterVec
	ReportRowsTotal *prometheus.CounterVec
	ExportDuration  *prometheus.HistogramVec
	UploadsTotal    *prometheus.CounterVec
}

// Global instance of metrics
var globalMetrics *Metrics
var metricsOnce sync.Once

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// EnableMetrics enables metrics collection
func EnableMetrics() {
	metricsEnabled.Store(true)
}

// IsMetricsEnabled returns whether metrics collection is enabled
func IsMetricsEnabled() bool {
	return metricsEnabled.Load()
}

// newMetrics creates and registers all metrics
func newMetrics() *Metrics {
	buckets := []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

	return &Metrics{
		ProbeDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "saleprobe_probe_duration_seconds",
				Help:    "Time spent probing a single website",
				Buckets: buckets,
			},
			[]string{"kind"},
		),
		ProbesTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saleprobe_probes_total",
				Help: "Total number of probes by status class",
			},
			[]string{"class"},
		),

		QueueSize: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "saleprobe_queue_size",
				Help: "Rows waiting in the shared queue for a free worker",
			},
		),
		QueueCapacity: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "saleprobe_queue_capacity",
				Help: "Capacity of the shared queue",
			},
		),

		WorkerBusy: defaultRegisterer.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "saleprobe_worker_busy",
				Help: "Whether a worker is currently busy (1) or idle (0)",
			},
			[]string{"worker_id"},
		),
		WorkerProcessed: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saleprobe_worker_processed_total",
				Help: "Total number of rows probed by a worker",
			},
			[]string{"worker_id"},
		),
		WorkerPanics: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saleprobe_worker_panics_total",
				Help: "Total number of panics recovered while probing",
			},
			[]string{"worker_id"},
		),

		SchedulerWorkSubmitted: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saleprobe_scheduler_work_submitted_total",
				Help: "Total number of rows submitted for probing",
			},
			[]string{"mode"},
		),
		SchedulerWorkCompleted: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saleprobe_scheduler_work_completed_total",
				Help: "Total number of rows whose probe finished",
			},
			[]string{"mode"},
		),

		SourceRowsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saleprobe_source_rows_total",
				Help: "Total number of rows loaded from a row source",
			},
			[]string{"source"},
		),
		ReportRowsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saleprobe_report_rows_total",
				Help: "Total number of rows written to reports",
			},
			[]string{"format"},
		),
		ExportDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "saleprobe_export_duration_seconds",
				Help:    "Time spent writing a report",
				Buckets: buckets,
			},
			[]string{"format"},
		),
		UploadsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saleprobe_uploads_total",
				Help: "Total number of report uploads by outcome",
			},
			[]string{"status"},
		),
	}
}

// StartMetricsServer starts an HTTP server to expose Prometheus metrics.
// The listener is bound before returning so a busy port is reported to the caller.
func StartMetricsServer(addr string) error {
	if !IsMetricsEnabled() {
		return nil
	}

	// Only start once
	var startErr error
	metricsInitialized.Do(func() {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			startErr = err
			return
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		metricsServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			log.Printf("Starting metrics server on %s", ln.Addr())
			if err := metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	})

	return startErr
}

// ShutdownMetricsServer gracefully shuts down the metrics server
func ShutdownMetricsServer(ctx context.Context) error {
	if metricsServer != nil {
		log.Println("Shutting down metrics server...")
		return metricsServer.Shutdown(ctx)
	}
	return nil
}

// MeasureDuration is a helper to measure the duration of a function
func MeasureDuration(histogram *prometheus.HistogramVec, labels prometheus.Labels) func() {
	if !IsMetricsEnabled() {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		histogram.With(labels).Observe(duration.Seconds())
	}
}

// ObserveProbe records one finished probe.
func ObserveProbe(kind, class string, d time.Duration) {
	if !IsMetricsEnabled() {
		return
	}
	m := GetMetrics()
	m.ProbeDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.ProbesTotal.WithLabelValues(class).Inc()
}

// RecordSourceRows counts rows loaded from the named source.
func RecordSourceRows(source string, n int) {
	if !IsMetricsEnabled() {
		return
	}
	GetMetrics().SourceRowsTotal.WithLabelValues(source).Add(float64(n))
}

// RecordReportRows counts rows written in the given report format.
func RecordReportRows(format string, n int) {
	if !IsMetricsEnabled() {
		return
	}
	GetMetrics().ReportRowsTotal.WithLabelValues(format).Add(float64(n))
}

// RecordUpload counts an upload attempt; status is "ok" or "error".
func RecordUpload(status string) {
	if !IsMetricsEnabled() {
		return
	}
	GetMetrics().UploadsTotal.WithLabelValues(status).Inc()
}

// UpdateQueueMetrics updates the shared queue gauges
func (m *Metrics) UpdateQueueMetrics(queueSize, queueCapacity int) {
	if !IsMetricsEnabled() {
		return
	}

	m.QueueSize.Set(float64(queueSize))
	m.QueueCapacity.Set(float64(queueCapacity))
}

// SetWorkerBusy flips the busy gauge for a worker.
func (m *Metrics) SetWorkerBusy(workerID int, busy bool) {
	if !IsMetricsEnabled() {
		return
	}
	v := 0.0
	if busy {
		v = 1
	}
	m.WorkerBusy.WithLabelValues(strconv.Itoa(workerID)).Set(v)
}

// RecordWorkerDone counts a finished item for a worker, and a panic if one was recovered.
func (m *Metrics) RecordWorkerDone(workerID int, panicked bool) {
	if !IsMetricsEnabled() {
		return
	}
	id := strconv.Itoa(workerID)
	m.WorkerProcessed.WithLabelValues(id).Inc()
	if panicked {
		m.WorkerPanics.WithLabelValues(id).Inc()
	}
}

// RecordSubmitted counts a row handed to the scheduler in the given mode.
func (m *Metrics) RecordSubmitted(mode string) {
	if !IsMetricsEnabled() {
		return
	}
	m.SchedulerWorkSubmitted.WithLabelValues(mode).Inc()
}

// RecordCompleted counts a row whose probe finished in the given mode.
func (m *Metrics) RecordCompleted(mode string) {
	if !IsMetricsEnabled() {
		return
	}
	m.SchedulerWorkCompleted.WithLabelValues(mode).Inc()
}
