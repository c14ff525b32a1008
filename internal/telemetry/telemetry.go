package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Telemetry holds the Prometheus collectors for pipeline runs. A nil
// *Telemetry is valid and records nothing.
type Telemetry struct {
	runsTotal     prometheus.Counter
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	llmCalls      *prometheus.CounterVec
	dupesSkipped  prometheus.Counter
}

// New registers the collectors on the default registry.
func New() *Telemetry {
	return &Telemetry{
		runsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "newsight_runs_total",
			Help: "Pipeline runs started.",
		}),
		stageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsight_stage_duration_seconds",
			Help:    "Wall time per pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage"}),
		stageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "newsight_stage_errors_total",
			Help: "Degraded stage outcomes recorded on the run state.",
		}, []string{"stage"}),
		llmCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "newsight_llm_calls_total",
			Help: "Text-generation calls by model and outcome.",
		}, []string{"model", "outcome"}),
		dupesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "newsight_duplicates_skipped_total",
			Help: "Candidate articles dropped as near-duplicates.",
		}),
	}
}

func (t *Telemetry) RunStarted() {
	if t == nil {
		return
	}
	t.runsTotal.Inc()
}

func (t *Telemetry) ObserveStage(stage string, d time.Duration) {
	if t == nil {
		return
	}
	t.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (t *Telemetry) StageError(stage string) {
	if t == nil {
		return
	}
	t.stageErrors.WithLabelValues(stage).Inc()
}

func (t *Telemetry) LLMCall(model string, err error) {
	if t == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	t.llmCalls.WithLabelValues(model, outcome).Inc()
}

func (t *Telemetry) DuplicateSkipped() {
	if t == nil {
		return
	}
	t.dupesSkipped.Inc()
}
