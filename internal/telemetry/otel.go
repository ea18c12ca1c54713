// Package telemetry exposes per-ingestion-stage duration histograms,
// adapted from the teacher's internal/rag/obs.OtelMetrics: the same
// lazily-cached-instrument-over-the-global-meter shape, generalized from
// a generic counter/histogram interface down to the fixed set of stage
// names §4.14 names (open, cleanup, anchors, soa, chunk, heading_blocks,
// facts, normalize, topics, embed, quality, persist).
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds the OpenTelemetry meter-provider knobs SPEC_FULL's config
// surface exposes; metric export wiring (an OTLP reader/exporter) is left
// to the process entrypoint since it is infrastructure, not pipeline logic.
type Config struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// StageTimer records one pipeline stage's duration histogram, tagged with
// the stage's outcome ("ok" or "error") so a dashboard can separate
// successful stages from failed ones without a separate metric per status.
type StageTimer struct {
	mu         sync.RWMutex
	meter      metric.Meter
	histograms map[string]metric.Float64Histogram
}

// NewStageTimer constructs a StageTimer against the global meter
// provider, which stays OTel's default no-op provider unless the process
// entrypoint installs another before first use.
func NewStageTimer() *StageTimer {
	return &StageTimer{
		meter:      otel.Meter("trialgraph/ingestion"),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// Observe records how long one C14 stage took, in seconds, for one run.
func (t *StageTimer) Observe(stage string, d time.Duration, status string) {
	if t == nil {
		return
	}
	h, ok := t.histogram(stage)
	if !ok {
		return
	}
	h.Record(context.Background(), d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

func (t *StageTimer) histogram(stage string) (metric.Float64Histogram, bool) {
	t.mu.RLock()
	h, ok := t.histograms[stage]
	t.mu.RUnlock()
	if ok {
		return h, true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if h, ok = t.histograms[stage]; ok {
		return h, true
	}
	hist, err := t.meter.Float64Histogram(
		"ingestion.stage.duration_seconds",
		metric.WithDescription("Duration of one C14 ingestion pipeline stage"),
	)
	if err != nil {
		return hist, false
	}
	t.histograms[stage] = hist
	return hist, true
}
