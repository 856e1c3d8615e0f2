// Package metrics exposes per-run gauges in Prometheus text format so CI
// hosts can pick them up with the node-exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dkoosis/cibot/internal/dispatch"
	"github.com/dkoosis/cibot/pkg/coverage"
)

const namespace = "cibot"

// Recorder holds the gauges for one process run.
type Recorder struct {
	reg *prometheus.Registry

	files      prometheus.Gauge
	keys       prometheus.Gauge
	collisions prometheus.Gauge
	skipped    prometheus.Gauge
	bytes      prometheus.Gauge
	duration   prometheus.Gauge
	success    prometheus.Gauge
	workerKeys *prometheus.GaugeVec
	changes    *prometheus.GaugeVec
}

// NewRecorder registers all gauges on a private registry.
func NewRecorder() *Recorder {
	gauge := func(subsystem, name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		})
	}
	r := &Recorder{
		reg:        prometheus.NewRegistry(),
		files:      gauge("coverage", "files", "Result files ingested by the last run."),
		keys:       gauge("coverage", "keys", "Composite keys in the combined result set."),
		collisions: gauge("coverage", "collisions", "Composite keys written more than once."),
		skipped:    gauge("coverage", "skipped_files", "Malformed result files skipped."),
		bytes:      gauge("coverage", "output_bytes", "Size of the combined result file."),
		duration:   gauge("coverage", "duration_seconds", "Wall time of the last run."),
		success:    gauge("", "last_run_success", "1 when the last run succeeded, 0 otherwise."),
		workerKeys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "coverage", Name: "worker_keys",
			Help: "Composite keys contributed by each worker.",
		}, []string{"worker"}),
		changes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "bouncer", Name: "changes",
			Help: "Changes seen by the last dispatch pass, by outcome.",
		}, []string{"outcome"}),
	}
	r.reg.MustRegister(r.files, r.keys, r.collisions, r.skipped, r.bytes,
		r.duration, r.success, r.workerKeys, r.changes)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// ObserveCoverage records a completed aggregation run.
func (r *Recorder) ObserveCoverage(rep *coverage.Report) {
	r.files.Set(float64(len(rep.Files)))
	r.keys.Set(float64(rep.Keys))
	r.collisions.Set(float64(len(rep.Collisions)))
	r.skipped.Set(float64(len(rep.Skipped)))
	r.bytes.Set(float64(rep.Bytes))
	r.duration.Set(rep.Elapsed.Seconds())
	for worker, n := range rep.PerWorker {
		r.workerKeys.WithLabelValues(worker).Set(float64(n))
	}
	r.success.Set(1)
}

// ObserveDispatch records a dispatch pass. A nil summary counts as failure.
func (r *Recorder) ObserveDispatch(s *dispatch.Summary, err error) {
	if s != nil {
		r.changes.WithLabelValues("checked").Set(float64(len(s.Checked)))
		r.changes.WithLabelValues("skipped").Set(float64(len(s.Skipped)))
		r.changes.WithLabelValues("failed").Set(float64(len(s.Failed)))
	}
	if err != nil {
		r.success.Set(0)
		return
	}
	r.success.Set(1)
}

// ObserveFailure marks the run as failed.
func (r *Recorder) ObserveFailure() {
	r.success.Set(0)
}

// WriteTextfile writes all gauges to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
