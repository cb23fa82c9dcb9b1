package infrastructure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "viloai"

// PipelineMetrics counts what the reply pipeline does. A nil *PipelineMetrics
// is valid and records nothing.
type PipelineMetrics struct {
	// Labels: channel (dm, comment), outcome (skipped, auto_replied, queued, analyzed, ignored, failed)
	MessagesTotal *prometheus.CounterVec

	// Labels: component (classifier, relevance)
	AIFallbacksTotal *prometheus.CounterVec

	// Labels: reply_type (automation, ai_approved, manual), status (success, error)
	RepliesTotal *prometheus.CounterVec

	// Labels: provider
	AIRequestSeconds *prometheus.HistogramVec
}

// NewPipelineMetrics registers the pipeline metrics on reg.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	f := promauto.With(reg)
	return &PipelineMetrics{
		MessagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "messages_total",
			Help:      "Inbound messages processed, by channel and outcome.",
		}, []string{"channel", "outcome"}),
		AIFallbacksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "ai_fallbacks_total",
			Help:      "AI calls that failed or returned unparseable output.",
		}, []string{"component"}),
		RepliesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "replies_total",
			Help:      "Reply send attempts, by reply type and status.",
		}, []string{"reply_type", "status"}),
		AIRequestSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "Latency of AI provider calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"provider"}),
	}
}

func (m *PipelineMetrics) ObserveMessage(channel, outcome string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(channel, outcome).Inc()
}

func (m *PipelineMetrics) ObserveFallback(component string) {
	if m == nil {
		return
	}
	m.AIFallbacksTotal.WithLabelValues(component).Inc()
}

func (m *PipelineMetrics) ObserveReply(replyType string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RepliesTotal.WithLabelValues(replyType, status).Inc()
}

func (m *PipelineMetrics) ObserveAIRequest(provider string, started time.Time) {
	if m == nil {
		return
	}
	m.AIRequestSeconds.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}
