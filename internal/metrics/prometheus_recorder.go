package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "mapbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	stageDuration   *prom.HistogramVec
	buildDuration   prom.Histogram
	stageResults    *prom.CounterVec
	buildOutcome    *prom.CounterVec
	renderFailures  prom.Counter
	integrityAlerts prom.Counter
	webhookResults  *prom.CounterVec
	activeBuilds    prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   []float64{.05, .1, .5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration including lock wait",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400},
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.renderFailures = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "render_failures_total",
			Help:      "Renderer invocations that exited unsuccessfully",
		})
		pr.integrityAlerts = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "publish_integrity_alerts_total",
			Help:      "Publications where the moved output count differed from the asset count",
		})
		pr.webhookResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_results_total",
			Help:      "Webhook deliveries by handling result",
		}, []string{"result"})
		pr.activeBuilds = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "active_builds",
			Help:      "Builds currently running or waiting for their target lock",
		})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
			pr.renderFailures, pr.integrityAlerts, pr.webhookResults, pr.activeBuilds)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncRenderFailure() {
	if p == nil || p.renderFailures == nil {
		return
	}
	p.renderFailures.Inc()
}

func (p *PrometheusRecorder) IncIntegrityAlert() {
	if p == nil || p.integrityAlerts == nil {
		return
	}
	p.integrityAlerts.Inc()
}

func (p *PrometheusRecorder) IncWebhookResult(result string) {
	if p == nil || p.webhookResults == nil {
		return
	}
	p.webhookResults.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) SetActiveBuilds(n int) {
	if p == nil || p.activeBuilds == nil {
		return
	}
	p.activeBuilds.Set(float64(n))
}
