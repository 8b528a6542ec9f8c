package analysis

import (
	"errors"
	"testing"
)

var testFrontier = Frontier{
	{Config: Config{Width: 320, Skip: 2, Quant: 40}, BandwidthBPS: 2000, Accuracy: 0.4},
	{Config: Config{Width: 640, Skip: 1, Quant: 30}, BandwidthBPS: 8000, Accuracy: 0.7},
	{Config: Config{Width: 1280, Skip: 0, Quant: 20}, BandwidthBPS: 30000, Accuracy: 0.9},
}

func bwWindow(interval int, bps float64) WindowSummary {
	return WindowSummary{Interval: interval, BandwidthBPS: bps, F1: 0.8, F1Defined: true}
}

func TestTriggerConsecutiveWindowsRequired(t *testing.T) {
	tr := NewTrigger(TriggerOptions{
		BandwidthHighWatermark: 15000,
		ConsecutiveWindows:     2,
		CooldownWindows:        1,
	}, testFrontier, Config{Width: 1280, Skip: 0, Quant: 20})

	// Two consecutive breaches required: nothing after window 0.
	d, err := tr.Observe(bwWindow(0, 20000))
	if err != nil || d != nil {
		t.Fatalf("window 0: decision %v err %v, want none", d, err)
	}
	// Second breach fires the decision at window 1.
	d, err = tr.Observe(bwWindow(1, 21000))
	if err != nil {
		t.Fatalf("window 1: %v", err)
	}
	if d == nil {
		t.Fatal("window 1: no decision, want one")
	}
	if d.Interval != 1 {
		t.Errorf("decision interval = %d, want 1", d.Interval)
	}
	if d.Metric != MetricBandwidthHigh {
		t.Errorf("decision metric = %q, want %q", d.Metric, MetricBandwidthHigh)
	}
	// Selected point must fit under the watermark.
	if want := (Config{Width: 640, Skip: 1, Quant: 30}); d.Config != want {
		t.Errorf("decision config = %v, want %v", d.Config, want)
	}

	// Third window is inside the cooldown; no further decision.
	d, err = tr.Observe(bwWindow(2, 5000))
	if err != nil || d != nil {
		t.Fatalf("window 2: decision %v err %v, want none during cooldown", d, err)
	}
}

func TestTriggerBreachStreakResets(t *testing.T) {
	tr := NewTrigger(TriggerOptions{
		BandwidthHighWatermark: 15000,
		ConsecutiveWindows:     2,
	}, testFrontier, Config{Width: 1280, Skip: 0, Quant: 20})

	mustNoDecision(t, tr, bwWindow(0, 20000))
	mustNoDecision(t, tr, bwWindow(1, 10000)) // streak broken
	mustNoDecision(t, tr, bwWindow(2, 20000)) // streak restarts at 1
	d, err := tr.Observe(bwWindow(3, 20000))
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.Interval != 3 {
		t.Fatalf("decision = %+v, want one at interval 3", d)
	}
}

func TestTriggerIdempotentOnReplay(t *testing.T) {
	tr := NewTrigger(TriggerOptions{
		BandwidthHighWatermark: 15000,
		ConsecutiveWindows:     1,
	}, testFrontier, Config{Width: 1280, Skip: 0, Quant: 20})

	d, err := tr.Observe(bwWindow(0, 20000))
	if err != nil || d == nil {
		t.Fatalf("first delivery: decision %v err %v", d, err)
	}
	// Replaying the same interval is a no-op.
	d, err = tr.Observe(bwWindow(0, 20000))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if d != nil {
		t.Errorf("replay produced decision %+v, want none", d)
	}
}

func TestTriggerOutOfOrderIsFatal(t *testing.T) {
	tr := NewTrigger(TriggerOptions{}, testFrontier, Config{Width: 1280})

	if _, err := tr.Observe(bwWindow(5, 1000)); err != nil {
		t.Fatal(err)
	}
	_, err := tr.Observe(bwWindow(3, 1000))
	var ooo *OutOfOrderError
	if !errors.As(err, &ooo) {
		t.Fatalf("error = %v, want OutOfOrderError", err)
	}
	if ooo.Last != 5 || ooo.Got != 3 {
		t.Errorf("OutOfOrderError = %+v, want Last=5 Got=3", ooo)
	}
}

func TestTriggerAccuracyFloor(t *testing.T) {
	tr := NewTrigger(TriggerOptions{
		AccuracyFloor:      0.6,
		ConsecutiveWindows: 2,
		SelectionPolicy:    PolicyNearestAccuracy,
	}, testFrontier, Config{Width: 320, Skip: 2, Quant: 40})

	low := func(i int) WindowSummary {
		return WindowSummary{Interval: i, BandwidthBPS: 2000, F1: 0.3, F1Defined: true}
	}
	mustNoDecision(t, tr, low(0))
	d, err := tr.Observe(low(1))
	if err != nil {
		t.Fatal(err)
	}
	if d == nil {
		t.Fatal("no decision after two accuracy breaches")
	}
	// Cheapest frontier point with accuracy >= 0.6.
	if want := (Config{Width: 640, Skip: 1, Quant: 30}); d.Config != want {
		t.Errorf("decision config = %v, want %v", d.Config, want)
	}
	if d.Metric != MetricAccuracyFloor {
		t.Errorf("metric = %q, want %q", d.Metric, MetricAccuracyFloor)
	}
}

func TestTriggerUndefinedAccuracyLeavesStreak(t *testing.T) {
	tr := NewTrigger(TriggerOptions{
		AccuracyFloor:      0.6,
		ConsecutiveWindows: 2,
	}, testFrontier, Config{Width: 320, Skip: 2, Quant: 40})

	mustNoDecision(t, tr, WindowSummary{Interval: 0, F1: 0.3, F1Defined: true})
	// Undefined window neither advances nor resets the streak.
	mustNoDecision(t, tr, WindowSummary{Interval: 1, F1Defined: false})
	d, err := tr.Observe(WindowSummary{Interval: 2, F1: 0.3, F1Defined: true})
	if err != nil {
		t.Fatal(err)
	}
	if d == nil {
		t.Fatal("streak should survive an undefined window")
	}
}

func TestTriggerLowWatermarkUpgrades(t *testing.T) {
	tr := NewTrigger(TriggerOptions{
		BandwidthHighWatermark: 50000,
		BandwidthLowWatermark:  3000,
		ConsecutiveWindows:     1,
	}, testFrontier, Config{Width: 320, Skip: 2, Quant: 40})

	d, err := tr.Observe(bwWindow(0, 1000))
	if err != nil {
		t.Fatal(err)
	}
	if d == nil {
		t.Fatal("no decision on low-watermark breach")
	}
	if d.Metric != MetricBandwidthLow {
		t.Errorf("metric = %q, want %q", d.Metric, MetricBandwidthLow)
	}
	// Most accurate point under the high watermark budget.
	if want := (Config{Width: 1280, Skip: 0, Quant: 20}); d.Config != want {
		t.Errorf("decision config = %v, want %v", d.Config, want)
	}
}

func TestTriggerNoDecisionWhenAlreadyOnBestPoint(t *testing.T) {
	tr := NewTrigger(TriggerOptions{
		BandwidthHighWatermark: 15000,
		ConsecutiveWindows:     1,
	}, testFrontier, Config{Width: 640, Skip: 1, Quant: 30})

	d, err := tr.Observe(bwWindow(0, 20000))
	if err != nil {
		t.Fatal(err)
	}
	if d != nil {
		t.Errorf("decision %+v, want none: already on the selected point", d)
	}
	if tr.State() != StateSteady {
		t.Errorf("state = %v, want STEADY", tr.State())
	}
}

func TestTriggerEvaluatingWaitsForViableFrontier(t *testing.T) {
	tr := NewTrigger(TriggerOptions{
		BandwidthHighWatermark: 15000,
		ConsecutiveWindows:     1,
	}, Frontier{}, Config{Width: 1280})

	mustNoDecision(t, tr, bwWindow(0, 20000))
	if tr.State() != StateEvaluating {
		t.Fatalf("state = %v, want EVALUATING with empty frontier", tr.State())
	}

	// Once a frontier arrives, the pending evaluation resolves.
	tr.SetFrontier(testFrontier)
	d, err := tr.Observe(bwWindow(1, 20000))
	if err != nil {
		t.Fatal(err)
	}
	if d == nil {
		t.Fatal("no decision after frontier update")
	}
	if tr.State() != StateSteady {
		t.Errorf("state = %v, want STEADY", tr.State())
	}
}

// driftedProfile is testFrontier with the top configuration's bandwidth
// shifted by +4000 bps (squared drift 1.6e7).
func driftedProfile() []ProfilePoint {
	return []ProfilePoint{
		{Config: Config{Width: 320, Skip: 2, Quant: 40}, BandwidthBPS: 2000, Accuracy: 0.4},
		{Config: Config{Width: 640, Skip: 1, Quant: 30}, BandwidthBPS: 8000, Accuracy: 0.7},
		{Config: Config{Width: 1280, Skip: 0, Quant: 20}, BandwidthBPS: 34000, Accuracy: 0.9},
	}
}

func TestTriggerProfileDriftSwitchesConfig(t *testing.T) {
	tr := NewTrigger(TriggerOptions{
		BandwidthHighWatermark: 15000,
		ProfileDriftBandwidth:  1e6,
	}, testFrontier, Config{Width: 1280, Skip: 0, Quant: 20})

	// Fresh profile matching the frontier: no drift, no decision.
	d, err := tr.ObserveProfile(0, []ProfilePoint(testFrontier))
	if err != nil || d != nil {
		t.Fatalf("interval 0: decision %v err %v, want none without drift", d, err)
	}

	// The top point drifted over the bound; re-selection picks the best
	// point under the watermark budget.
	d, err = tr.ObserveProfile(1, driftedProfile())
	if err != nil {
		t.Fatal(err)
	}
	if d == nil {
		t.Fatal("interval 1: no decision, want one")
	}
	if d.Metric != MetricProfileDrift {
		t.Errorf("decision metric = %q, want %q", d.Metric, MetricProfileDrift)
	}
	if d.MetricValue != 1.6e7 {
		t.Errorf("decision metric value = %v, want 1.6e7", d.MetricValue)
	}
	if want := (Config{Width: 640, Skip: 1, Quant: 30}); d.Config != want {
		t.Errorf("decision config = %v, want %v", d.Config, want)
	}
}

func TestTriggerProfileDriftOnAccuracy(t *testing.T) {
	tr := NewTrigger(TriggerOptions{
		ProfileDriftAccuracy: 0.1,
	}, testFrontier, Config{Width: 640, Skip: 1, Quant: 30})

	// The middle configuration's accuracy collapsed; drift 0.4^2 = 0.16.
	fresh := append([]ProfilePoint(nil), testFrontier...)
	fresh[1].Accuracy = 0.3

	d, err := tr.ObserveProfile(0, fresh)
	if err != nil {
		t.Fatal(err)
	}
	if d == nil {
		t.Fatal("no decision, want one")
	}
	// No budget configured: selection takes the top of the rebuilt frontier.
	if want := (Config{Width: 1280, Skip: 0, Quant: 20}); d.Config != want {
		t.Errorf("decision config = %v, want %v", d.Config, want)
	}
	if delta := d.MetricValue - 0.16; delta > 1e-12 || delta < -1e-12 {
		t.Errorf("decision metric value = %v, want 0.16", d.MetricValue)
	}
}

func TestTriggerProfileDriftDisabledByDefault(t *testing.T) {
	tr := NewTrigger(TriggerOptions{
		BandwidthHighWatermark: 15000,
	}, testFrontier, Config{Width: 1280, Skip: 0, Quant: 20})

	d, err := tr.ObserveProfile(0, driftedProfile())
	if err != nil || d != nil {
		t.Fatalf("decision %v err %v, want none with drift bounds unset", d, err)
	}
}

func TestTriggerProfileDriftAdoptsFrontierDuringCooldown(t *testing.T) {
	tr := NewTrigger(TriggerOptions{
		BandwidthHighWatermark: 15000,
		ConsecutiveWindows:     1,
		CooldownWindows:        2,
		ProfileDriftBandwidth:  1e6,
	}, testFrontier, Config{Width: 1280, Skip: 0, Quant: 20})

	// Watermark breach at window 0 switches to 640 and starts the cooldown.
	d, err := tr.Observe(bwWindow(0, 20000))
	if err != nil || d == nil {
		t.Fatalf("window 0: decision %v err %v, want a switch", d, err)
	}

	// A drifted profile inside the cooldown emits nothing but still
	// replaces the frontier.
	d, err = tr.ObserveProfile(1, driftedProfile())
	if err != nil || d != nil {
		t.Fatalf("interval 1: decision %v err %v, want none during cooldown", d, err)
	}
	if p, ok := tr.frontier.FindByAccuracy(0.9); !ok || p.BandwidthBPS != 34000 {
		t.Errorf("frontier top = %+v ok=%v, want drifted 34000 bps point", p, ok)
	}
}

func TestTriggerProfileDriftOutOfOrderIsFatal(t *testing.T) {
	tr := NewTrigger(TriggerOptions{
		ProfileDriftBandwidth: 1e6,
	}, testFrontier, Config{Width: 1280, Skip: 0, Quant: 20})

	mustNoDecision(t, tr, bwWindow(3, 5000))
	_, err := tr.ObserveProfile(1, driftedProfile())
	var ooErr *OutOfOrderError
	if !errors.As(err, &ooErr) {
		t.Fatalf("err = %v, want OutOfOrderError", err)
	}
}

func mustNoDecision(t *testing.T, tr *Trigger, ws WindowSummary) {
	t.Helper()
	d, err := tr.Observe(ws)
	if err != nil {
		t.Fatalf("interval %d: %v", ws.Interval, err)
	}
	if d != nil {
		t.Fatalf("interval %d: unexpected decision %+v", ws.Interval, d)
	}
}
