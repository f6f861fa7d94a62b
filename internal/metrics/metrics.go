// Package metrics exports run statistics in the Prometheus text format.
// Runs are batch jobs, so the registry is written to a node-exporter
// textfile rather than served.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/salesmix/internal/pipeline"
)

type Registry struct {
	reg          *prometheus.Registry
	Rows         *prometheus.GaugeVec
	Quantity     *prometheus.GaugeVec
	Diagnostics  *prometheus.GaugeVec
	StageRecords *prometheus.GaugeVec
	DurationSec  prometheus.Gauge
	LastSuccess  prometheus.Gauge

	PublishFailures prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	rows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "salesmix_output_rows",
		Help: "Output rows of the last run by sales type.",
	}, []string{"sales_type"})
	quantity := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "salesmix_output_quantity",
		Help: "Attributed units of the last run by sales type.",
	}, []string{"sales_type"})
	diagnostics := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "salesmix_diagnostics",
		Help: "Diagnostics raised by the last run by kind.",
	}, []string{"kind"})
	stage := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "salesmix_stage_records",
		Help: "Records seen at each pipeline stage of the last run.",
	}, []string{"stage"})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{Name: "salesmix_run_duration_seconds"})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{Name: "salesmix_last_success_timestamp_seconds"})
	publishFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "salesmix_publish_failures_total"})

	r.MustRegister(rows, quantity, diagnostics, stage, duration, lastSuccess, publishFailures)
	return &Registry{
		reg:             r,
		Rows:            rows,
		Quantity:        quantity,
		Diagnostics:     diagnostics,
		StageRecords:    stage,
		DurationSec:     duration,
		LastSuccess:     lastSuccess,
		PublishFailures: publishFailures,
	}
}

// Observe records the output of a run.
func (r *Registry) Observe(out *pipeline.Output, elapsed time.Duration) {
	for _, row := range out.Rows {
		r.Rows.WithLabelValues(string(row.SalesType)).Inc()
		r.Quantity.WithLabelValues(string(row.SalesType)).Add(float64(row.Quantity))
	}
	for _, d := range out.Diagnostics {
		r.Diagnostics.WithLabelValues(string(d.Kind)).Inc()
	}
	r.StageRecords.WithLabelValues("orders").Set(float64(out.Stats.Orders))
	r.StageRecords.WithLabelValues("resolved_orders").Set(float64(out.Stats.ResolvedOrders))
	r.StageRecords.WithLabelValues("unmatched").Set(float64(out.Stats.Unmatched))
	r.StageRecords.WithLabelValues("liquidation").Set(float64(out.Stats.Liquidation))
	r.StageRecords.WithLabelValues("rows").Set(float64(out.Stats.Rows))
	r.DurationSec.Set(elapsed.Seconds())
}

// MarkSuccess stamps the time of a completed publish.
func (r *Registry) MarkSuccess(at time.Time) {
	r.LastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry to path atomically.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
