package analysis

import (
	"math"

	"github.com/banshee-data/stream.report/internal/config"
	"github.com/banshee-data/stream.report/internal/monitoring"
)

// TriggerState is the online decision loop's state.
type TriggerState int

const (
	// StateSteady: operating on the current configuration, watching metrics.
	StateSteady TriggerState = iota
	// StateEvaluating: a metric crossed its bound; a candidate is being
	// selected from the frontier.
	StateEvaluating
)

func (s TriggerState) String() string {
	switch s {
	case StateSteady:
		return "STEADY"
	case StateEvaluating:
		return "EVALUATING"
	default:
		return "UNKNOWN"
	}
}

// Trigger metric names, reported on emitted decisions.
const (
	MetricBandwidthHigh = "bandwidth_high_watermark"
	MetricBandwidthLow  = "bandwidth_low_watermark"
	MetricAccuracyFloor = "accuracy_floor"
	MetricProfileDrift  = "profile_drift"
)

// Candidate selection policies.
const (
	PolicyNearestBandwidth = "nearest-bandwidth"
	PolicyNearestAccuracy  = "nearest-accuracy"
)

// TriggerOptions configures the online decision loop. Watermarks and floor
// set to zero disable the corresponding metric.
type TriggerOptions struct {
	BandwidthHighWatermark float64 // bps; breach when window bandwidth exceeds this
	BandwidthLowWatermark  float64 // bps; breach when window bandwidth falls under this
	AccuracyFloor          float64 // breach when defined window F1 falls under this
	ConsecutiveWindows     int     // breaches required before evaluating; min 1
	CooldownWindows        int     // windows after a decision with no re-evaluation
	SelectionPolicy        string  // PolicyNearestBandwidth or PolicyNearestAccuracy

	// Squared-drift bounds for ObserveProfile. A fresh profile drifting
	// past either bound forces a frontier rebuild and re-selection.
	ProfileDriftBandwidth float64
	ProfileDriftAccuracy  float64
}

// TriggerOptionsFromTuning maps the tuning config onto trigger options,
// applying the tuning defaults for unset fields.
func TriggerOptionsFromTuning(t *config.TuningConfig) TriggerOptions {
	if t == nil {
		t = config.EmptyTuningConfig()
	}
	return TriggerOptions{
		BandwidthHighWatermark: t.GetBandwidthHighWatermark(),
		BandwidthLowWatermark:  t.GetBandwidthLowWatermark(),
		AccuracyFloor:          t.GetAccuracyFloor(),
		ConsecutiveWindows:     t.GetConsecutiveWindows(),
		CooldownWindows:        t.GetCooldownWindows(),
		SelectionPolicy:        t.GetSelectionPolicy(),
		ProfileDriftBandwidth:  t.GetProfileDriftBandwidth(),
		ProfileDriftAccuracy:   t.GetProfileDriftAccuracy(),
	}
}

// Trigger consumes one configuration stream's window summaries in strict
// interval order and emits reconfiguration decisions. It is stateful and
// inherently sequential; concurrent operating streams each need their own
// Trigger.
type Trigger struct {
	opts     TriggerOptions
	frontier Frontier
	current  Config

	state        TriggerState
	lastInterval int
	cooldownEnd  int // no evaluation for intervals < cooldownEnd

	highStreak int
	lowStreak  int
	accStreak  int

	// pending breach carried from STEADY into EVALUATING
	pendingMetric string
	pendingValue  float64
}

// NewTrigger returns a Trigger in STEADY state on the initial configuration.
func NewTrigger(opts TriggerOptions, frontier Frontier, initial Config) *Trigger {
	if opts.ConsecutiveWindows < 1 {
		opts.ConsecutiveWindows = 1
	}
	if opts.SelectionPolicy == "" {
		opts.SelectionPolicy = PolicyNearestBandwidth
	}
	return &Trigger{
		opts:         opts,
		frontier:     frontier,
		current:      initial,
		state:        StateSteady,
		lastInterval: -1,
	}
}

// Current returns the configuration the trigger currently considers active.
func (t *Trigger) Current() Config { return t.current }

// State returns the current state machine state.
func (t *Trigger) State() TriggerState { return t.state }

// SetFrontier replaces the Pareto frontier used for candidate selection,
// e.g. after an online profile update.
func (t *Trigger) SetFrontier(f Frontier) { t.frontier = f }

// Observe feeds one window summary into the state machine. It returns a
// Decision when a reconfiguration fires, nil otherwise. Re-delivery of an
// already-processed interval is a no-op; an interval below the last
// processed one is an ordering violation.
func (t *Trigger) Observe(ws WindowSummary) (*Decision, error) {
	if ws.Interval == t.lastInterval {
		return nil, nil // duplicate delivery
	}
	if ws.Interval < t.lastInterval {
		return nil, &OutOfOrderError{Last: t.lastInterval, Got: ws.Interval}
	}
	t.lastInterval = ws.Interval

	// Hysteresis: sit out the cooldown after a decision so the loop does
	// not flap between configurations.
	if ws.Interval < t.cooldownEnd {
		t.resetStreaks()
		return nil, nil
	}

	if t.state == StateSteady {
		metric, value, breached := t.updateStreaks(ws)
		if !breached {
			return nil, nil
		}
		t.state = StateEvaluating
		t.pendingMetric = metric
		t.pendingValue = value
		monitoring.Logf("trigger: %s -> EVALUATING at interval %d (%s=%.4g)",
			t.current, ws.Interval, metric, value)
	}

	// EVALUATING: pick a candidate from the frontier. If none qualifies the
	// trigger stays in EVALUATING and retries on the next window (the
	// frontier may be replaced in between).
	candidate, ok := t.selectCandidate()
	if !ok {
		return nil, nil
	}

	t.state = StateSteady
	t.resetStreaks()
	t.cooldownEnd = ws.Interval + 1 + t.opts.CooldownWindows

	if candidate.Config == t.current {
		// Already on the best available point; no decision to emit.
		monitoring.Logf("trigger: staying on %s at interval %d", t.current, ws.Interval)
		return nil, nil
	}

	t.current = candidate.Config
	d := &Decision{
		Interval:    ws.Interval,
		Config:      candidate.Config,
		Metric:      t.pendingMetric,
		MetricValue: t.pendingValue,
	}
	monitoring.Logf("trigger: switch to %s at interval %d (%s=%.4g)",
		d.Config, d.Interval, d.Metric, d.MetricValue)
	return d, nil
}

// ObserveProfile feeds a freshly measured profile into the loop at the given
// interval. When the squared drift between the active frontier and the fresh
// profile exceeds a configured bound, the frontier is rebuilt from the fresh
// profile and a candidate re-selected, emitting a Decision when it differs
// from the current configuration. Drift bounds set to zero disable the
// metric. Re-delivery at the last processed interval is allowed; an earlier
// interval is an ordering violation.
func (t *Trigger) ObserveProfile(interval int, profile []ProfilePoint) (*Decision, error) {
	if interval < t.lastInterval {
		return nil, &OutOfOrderError{Last: t.lastInterval, Got: interval}
	}
	t.lastInterval = interval

	if t.opts.ProfileDriftBandwidth <= 0 && t.opts.ProfileDriftAccuracy <= 0 {
		return nil, nil
	}

	bwDrift, accDrift := t.frontier.Diff(profile)
	bwBreached := t.opts.ProfileDriftBandwidth > 0 && bwDrift > t.opts.ProfileDriftBandwidth
	accBreached := t.opts.ProfileDriftAccuracy > 0 && accDrift > t.opts.ProfileDriftAccuracy
	if !bwBreached && !accBreached {
		return nil, nil
	}

	// The fresh measurements supersede the stale frontier even while the
	// cooldown suppresses re-selection.
	t.frontier = ParetoFrontier(profile)
	if interval < t.cooldownEnd {
		return nil, nil
	}

	value := bwDrift
	if !bwBreached {
		value = accDrift
	}
	t.state = StateEvaluating
	t.pendingMetric = MetricProfileDrift
	t.pendingValue = value
	monitoring.Logf("trigger: %s -> EVALUATING at interval %d (%s=%.4g)",
		t.current, interval, MetricProfileDrift, value)

	candidate, ok := t.selectCandidate()
	if !ok {
		return nil, nil
	}

	t.state = StateSteady
	t.resetStreaks()
	t.cooldownEnd = interval + 1 + t.opts.CooldownWindows

	if candidate.Config == t.current {
		monitoring.Logf("trigger: staying on %s at interval %d", t.current, interval)
		return nil, nil
	}

	t.current = candidate.Config
	d := &Decision{
		Interval:    interval,
		Config:      candidate.Config,
		Metric:      MetricProfileDrift,
		MetricValue: value,
	}
	monitoring.Logf("trigger: switch to %s at interval %d (%s=%.4g)",
		d.Config, d.Interval, d.Metric, d.MetricValue)
	return d, nil
}

// updateStreaks advances the consecutive-breach counters for one window and
// reports the first metric whose streak reached the configured length.
func (t *Trigger) updateStreaks(ws WindowSummary) (metric string, value float64, breached bool) {
	k := t.opts.ConsecutiveWindows

	if t.opts.BandwidthHighWatermark > 0 {
		if ws.BandwidthBPS > t.opts.BandwidthHighWatermark {
			t.highStreak++
		} else {
			t.highStreak = 0
		}
		if t.highStreak >= k {
			return MetricBandwidthHigh, ws.BandwidthBPS, true
		}
	}
	if t.opts.BandwidthLowWatermark > 0 {
		if ws.BandwidthBPS < t.opts.BandwidthLowWatermark {
			t.lowStreak++
		} else {
			t.lowStreak = 0
		}
		if t.lowStreak >= k {
			return MetricBandwidthLow, ws.BandwidthBPS, true
		}
	}
	if t.opts.AccuracyFloor > 0 && ws.F1Defined {
		// Windows with undefined accuracy leave the streak untouched.
		if ws.F1 < t.opts.AccuracyFloor {
			t.accStreak++
		} else {
			t.accStreak = 0
		}
		if t.accStreak >= k {
			return MetricAccuracyFloor, ws.F1, true
		}
	}
	return "", 0, false
}

// selectCandidate applies the configured selection policy to the frontier.
func (t *Trigger) selectCandidate() (ProfilePoint, bool) {
	switch t.opts.SelectionPolicy {
	case PolicyNearestAccuracy:
		target := t.opts.AccuracyFloor
		if target <= 0 {
			break // fall through to bandwidth selection
		}
		if p, ok := t.frontier.FindByAccuracy(target); ok {
			return p, true
		}
		return ProfilePoint{}, false
	}

	// Bandwidth selection: the most accurate frontier point that fits under
	// the high watermark budget, or the top of the frontier when no budget
	// is configured.
	budget := t.opts.BandwidthHighWatermark
	if budget <= 0 {
		budget = math.Inf(1)
	}
	return t.frontier.FindByBandwidth(budget)
}

func (t *Trigger) resetStreaks() {
	t.highStreak = 0
	t.lowStreak = 0
	t.accStreak = 0
}
