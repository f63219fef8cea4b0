// Package metrics exposes recorder activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

const namespace = "testrecorder"

// PrometheusListener is an api.Listener that records recorder lifecycle
// events on a prometheus.Registerer.
type PrometheusListener struct {
	sessions  prometheus.Counter
	phase     *prometheus.GaugeVec
	accepted  prometheus.Counter
	ignored   *prometheus.CounterVec
	recorded  *prometheus.CounterVec
	dropped   prometheus.Counter
	fallbacks prometheus.Counter
	stepCount prometheus.Gauge
	pipeline  prometheus.Histogram
}

var _ api.Listener = (*PrometheusListener)(nil)

var phases = []api.Phase{api.PhaseIdle, api.PhaseRecording, api.PhasePaused, api.PhaseStopped}

// NewPrometheusListener registers the recorder metrics on reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewPrometheusListener(reg prometheus.Registerer) *PrometheusListener {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	l := &PrometheusListener{
		sessions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Recording sessions opened by START.",
		}),
		phase: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase",
			Help:      "1 for the recorder's current phase, 0 otherwise.",
		}, []string{"phase"}),
		accepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_accepted_total",
			Help:      "Step candidates accepted while recording.",
		}),
		ignored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_ignored_total",
			Help:      "Step candidates discarded outside recording, by phase.",
		}, []string{"phase"}),
		recorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_recorded_total",
			Help:      "Steps appended, by whether the screenshot was annotated.",
		}, []string{"annotated"}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_dropped_total",
			Help:      "Accepted candidates whose pipeline ended without a step.",
		}),
		fallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotation_fallbacks_total",
			Help:      "Steps stored with the raw capture because annotation failed.",
		}),
		stepCount: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_steps",
			Help:      "Number of steps in the current session.",
		}),
		pipeline: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time from candidate acceptance to step append.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
	l.setPhase(api.PhaseIdle)
	return l
}

func (l *PrometheusListener) setPhase(p api.Phase) {
	for _, ph := range phases {
		v := 0.0
		if ph == p {
			v = 1
		}
		l.phase.WithLabelValues(string(ph)).Set(v)
	}
}

func (l *PrometheusListener) OnSessionStarted(ctx context.Context, sessionID string, name string) {
	l.sessions.Inc()
	l.stepCount.Set(0)
}

func (l *PrometheusListener) OnPhaseChanged(ctx context.Context, sessionID string, from, to api.Phase) {
	l.setPhase(to)
}

func (l *PrometheusListener) OnCandidateAccepted(ctx context.Context, sessionID string, c api.StepCandidate) {
	l.accepted.Inc()
}

func (l *PrometheusListener) OnCandidateIgnored(ctx context.Context, phase api.Phase, c api.StepCandidate) {
	l.ignored.WithLabelValues(string(phase)).Inc()
}

func (l *PrometheusListener) OnStepRecorded(ctx context.Context, sessionID string, step api.Step, annotated bool, d time.Duration) {
	l.recorded.WithLabelValues(strconv.FormatBool(annotated)).Inc()
	l.stepCount.Set(float64(step.StepNumber))
	l.pipeline.Observe(d.Seconds())
}

func (l *PrometheusListener) OnStepDropped(ctx context.Context, sessionID string, c api.StepCandidate, err error) {
	l.dropped.Inc()
}

func (l *PrometheusListener) OnAnnotationFallback(ctx context.Context, sessionID string, c api.StepCandidate, reason error) {
	l.fallbacks.Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
