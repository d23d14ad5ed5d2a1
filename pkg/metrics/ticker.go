package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TickerMetrics records the Tick Scheduler's per-cycle outcomes: how long a
// detection cycle took, how many journeys it touched, and how often it erred.
type TickerMetrics struct {
	duration          *prometheus.HistogramVec
	executions        *prometheus.CounterVec
	journeysProcessed *prometheus.CounterVec
	errors            *prometheus.CounterVec
}

// NewTickerMetrics registers the scheduler metrics on the provided registerer.
func NewTickerMetrics(reg prometheus.Registerer) *TickerMetrics {
	if reg == nil {
		return &TickerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "detection_tick_duration_seconds",
		Help:    "Duration of detection orchestrator ticks in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	executions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detection_tick_executions_total",
		Help: "Total detection orchestrator tick executions by outcome.",
	}, []string{"outcome"})
	journeysProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detection_tick_journeys_processed_total",
		Help: "Total monitored journeys evaluated across detection ticks.",
	}, []string{"transition"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detection_tick_errors_total",
		Help: "Total detection tick failures by stage.",
	}, []string{"stage"})
	reg.MustRegister(duration, executions, journeysProcessed, errs)
	return &TickerMetrics{
		duration:          duration,
		executions:        executions,
		journeysProcessed: journeysProcessed,
		errors:            errs,
	}
}

// ObserveDuration records how long a tick took, labeled by its outcome
// ("ok", "skipped_locked", "error").
func (m *TickerMetrics) ObserveDuration(outcome string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(outcome)).Observe(d.Seconds())
}

// IncExecution increments the tick execution counter for the given outcome.
func (m *TickerMetrics) IncExecution(outcome string) {
	if m == nil || m.executions == nil {
		return
	}
	m.executions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddJourneysProcessed adds n to the processed-journeys counter for a
// transition label (the Tick Scheduler uses "checked", "delayed", "claimed").
func (m *TickerMetrics) AddJourneysProcessed(transition string, n int) {
	if m == nil || m.journeysProcessed == nil || n <= 0 {
		return
	}
	m.journeysProcessed.WithLabelValues(normalizeLabel(transition)).Add(float64(n))
}

// IncError increments the per-stage error counter (the Tick Scheduler
// records a failed detection cycle under the stage "cycle").
func (m *TickerMetrics) IncError(stage string) {
	if m == nil || m.errors == nil {
		return
	}
	m.errors.WithLabelValues(normalizeLabel(stage)).Inc()
}
