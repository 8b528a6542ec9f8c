package analysis

import (
	"math"
	"testing"
)

func TestGenerateTraceCarriesConfigForward(t *testing.T) {
	hi := Config{Width: 1280}
	lo := Config{Width: 640}
	summaries := map[Config][]WindowSummary{
		hi: {
			{Interval: 0, BandwidthBPS: 30000, F1: 0.9, F1Defined: true},
			{Interval: 1, BandwidthBPS: 31000, F1: 0.9, F1Defined: true},
			{Interval: 2, BandwidthBPS: 29000, F1: 0.9, F1Defined: true},
			{Interval: 3, BandwidthBPS: 30000, F1: 0.9, F1Defined: true},
		},
		lo: {
			{Interval: 0, BandwidthBPS: 8000, F1: 0.7, F1Defined: true},
			{Interval: 1, BandwidthBPS: 8100, F1: 0.7, F1Defined: true},
			{Interval: 2, BandwidthBPS: 7900, F1: 0.7, F1Defined: true},
			{Interval: 3, BandwidthBPS: 8000, F1: 0.7, F1Defined: true},
		},
	}
	decisions := []Decision{{Interval: 2, Config: lo, Metric: MetricBandwidthHigh, MetricValue: 31000}}

	trace := GenerateTrace(summaries, decisions, hi)
	if len(trace) != 4 {
		t.Fatalf("trace has %d entries, want 4 (no gaps)", len(trace))
	}
	for i, entry := range trace {
		if entry.Interval != i {
			t.Errorf("entry %d has interval %d, want %d", i, entry.Interval, i)
		}
	}
	// Intervals 0-1 run on the initial config, 2-3 on the decided one.
	for _, i := range []int{0, 1} {
		if trace[i].Config != hi {
			t.Errorf("interval %d active config = %v, want %v", i, trace[i].Config, hi)
		}
	}
	for _, i := range []int{2, 3} {
		if trace[i].Config != lo {
			t.Errorf("interval %d active config = %v, want %v", i, trace[i].Config, lo)
		}
	}
	if trace[2].BandwidthBPS != 7900 {
		t.Errorf("interval 2 bandwidth = %v, want realised 7900 from %v", trace[2].BandwidthBPS, lo)
	}
	if trace[0].Accuracy != 0.9 {
		t.Errorf("interval 0 accuracy = %v, want 0.9", trace[0].Accuracy)
	}
}

func TestGenerateTraceMissingSummaryIsNaN(t *testing.T) {
	cfg := Config{Width: 640}
	summaries := map[Config][]WindowSummary{
		cfg: {
			{Interval: 0, BandwidthBPS: 1000, F1: 0.5, F1Defined: true},
			{Interval: 2, BandwidthBPS: 1200, F1: 0.5, F1Defined: true},
		},
	}
	trace := GenerateTrace(summaries, nil, cfg)
	if len(trace) != 3 {
		t.Fatalf("trace has %d entries, want 3", len(trace))
	}
	if !math.IsNaN(trace[1].BandwidthBPS) || !math.IsNaN(trace[1].Accuracy) {
		t.Errorf("interval 1 = %+v, want NaN metrics for missing summary", trace[1])
	}
	if trace[1].Config != cfg {
		t.Errorf("interval 1 config = %v, want carried-forward %v", trace[1].Config, cfg)
	}
}

func TestGenerateTraceEmpty(t *testing.T) {
	if trace := GenerateTrace(nil, nil, Config{}); trace != nil {
		t.Errorf("trace = %v, want nil", trace)
	}
}
