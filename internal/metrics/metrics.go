// Package metrics provides Prometheus metrics for the local API server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	StagesTotal        *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	RegenerationsTotal *prometheus.CounterVec
	HTTPRequestsTotal  *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		StagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prdwing_stage_runs_total",
				Help: "Stage invocations by stage and result.",
			},
			[]string{"stage", "result"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prdwing_stage_duration_seconds",
				Help:    "Stage duration, including model calls.",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		RegenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prdwing_section_regenerations_total",
				Help: "PRD section regenerations by section key.",
			},
			[]string{"section"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prdwing_http_requests_total",
				Help: "API requests by route pattern and status code.",
			},
			[]string{"route", "code"},
		),
		registry: reg,
	}

	reg.MustRegister(m.StagesTotal)
	reg.MustRegister(m.StageDuration)
	reg.MustRegister(m.RegenerationsTotal)
	reg.MustRegister(m.HTTPRequestsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records one stage run.
func (m *Metrics) ObserveStage(stage string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.StagesTotal.WithLabelValues(stage, result).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRegeneration counts a section regeneration.
func (m *Metrics) RecordRegeneration(section string) {
	if m == nil {
		return
	}
	m.RegenerationsTotal.WithLabelValues(section).Inc()
}

// RecordRequest counts an API request.
func (m *Metrics) RecordRequest(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
}
