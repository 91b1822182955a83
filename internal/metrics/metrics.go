// Package metrics exposes import and export outcomes to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/JonMunkholm/supportlog/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "supportlog"

// Import outcomes used as the "result" label.
const (
	resultCompleted = "completed"
	resultCancelled = "cancelled"
	resultRejected  = "rejected"
	resultFailed    = "failed"
)

// Recorder implements core.Observer on a dedicated registry.
type Recorder struct {
	registry *prometheus.Registry

	imports        *prometheus.CounterVec
	importDuration prometheus.Histogram
	records        *prometheus.CounterVec
	exports        *prometheus.CounterVec
	exportBytes    prometheus.Counter
}

// New creates a Recorder with the Go runtime and process collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Import runs by format and result.",
		}, []string{"format", "result"}),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Wall time of import runs, including time waiting for a slot.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_records_total",
			Help:      "Records processed by imports, by outcome.",
		}, []string{"outcome"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Export runs by format and result.",
		}, []string{"format", "result"}),
		exportBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_bytes_total",
			Help:      "Bytes produced by successful exports.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.imports, r.importDuration, r.records, r.exports, r.exportBytes,
	)
	return r
}

// ImportFinished records one import run.
func (r *Recorder) ImportFinished(report *core.ImportReport, err error, elapsed time.Duration) {
	format := "unknown"
	if report != nil {
		format = string(report.Format)
		r.records.WithLabelValues("imported").Add(float64(report.Imported))
		r.records.WithLabelValues("skipped").Add(float64(report.Skipped))
	}
	r.imports.WithLabelValues(format, importResult(report, err)).Inc()
	r.importDuration.Observe(elapsed.Seconds())
}

func importResult(report *core.ImportReport, err error) string {
	switch {
	case err == nil:
		return resultCompleted
	case errors.Is(err, core.ErrImportCancelled):
		return resultCancelled
	case report == nil && !errors.Is(err, core.ErrTooManyImports):
		return resultRejected
	default:
		return resultFailed
	}
}

// ExportFinished records one export run.
func (r *Recorder) ExportFinished(format core.Format, size int, err error) {
	if err != nil {
		r.exports.WithLabelValues(string(format), resultFailed).Inc()
		return
	}
	r.exports.WithLabelValues(string(format), resultCompleted).Inc()
	r.exportBytes.Add(float64(size))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry so callers can add collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
