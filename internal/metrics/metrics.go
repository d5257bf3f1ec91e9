// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certgen_requests_total",
			Help: "Generation requests by HTTP outcome",
		},
		[]string{"outcome"},
	)

	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certgen_jobs_total",
			Help: "Completed generation jobs by document type and terminal status",
		},
		[]string{"type", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "certgen_job_duration_seconds",
			Help:    "End-to-end duration of generation jobs",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"type"},
	)

	JobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "certgen_jobs_active",
			Help: "Generation jobs currently running",
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "certgen_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	TemplateFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certgen_template_fallbacks_total",
			Help: "Template lookups that fell back to the next source",
		},
		[]string{"source"},
	)

	RepairFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "certgen_template_repair_failures_total",
			Help: "Template repairs that failed and continued with the raw template",
		},
	)

	MailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certgen_mails_total",
			Help: "Delivery attempts by provider and status",
		},
		[]string{"provider", "status"},
	)

	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certgen_callbacks_total",
			Help: "Outcome callbacks by payload status and delivery result",
		},
		[]string{"status", "result"},
	)

	MirrorFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "certgen_mirror_failures_total",
			Help: "Artifact uploads to the object store mirror that failed",
		},
	)
)

// Stage labels.
const (
	StageTemplate = "template"
	StageCompose  = "compose"
	StageRender   = "render"
	StageStore    = "store"
	StageMail     = "mail"
	StageCallback = "callback"
)
