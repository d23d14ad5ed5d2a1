package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestTickerMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTickerMetrics(reg)

	m.ObserveDuration("ok", 120*time.Millisecond)
	m.IncExecution("ok")
	m.AddJourneysProcessed("delayed", 3)
	m.IncError("fetch_delays")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "detection_tick_executions_total", "outcome", "ok"); err != nil {
		t.Fatalf("fetch executions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected executions=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "detection_tick_journeys_processed_total", "transition", "delayed"); err != nil {
		t.Fatalf("fetch journeys processed: %v", err)
	} else if got != 3 {
		t.Fatalf("expected journeys_processed=3, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "detection_tick_errors_total", "stage", "fetch_delays"); err != nil {
		t.Fatalf("fetch errors: %v", err)
	} else if got != 1 {
		t.Fatalf("expected errors=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "detection_tick_duration_seconds", "outcome", "ok"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}
