// Package analysis turns raw per-frame measurements from an adaptive video
// stream into time-windowed performance summaries, per-configuration
// bandwidth/accuracy profiles, Pareto frontiers, and online reconfiguration
// decisions.
package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

// Config identifies one encoding/detection operating point. Equality and
// ordering are by the (Width, Skip, Quant) tuple.
type Config struct {
	Width int // stream resolution width, e.g. 1280
	Skip  int // frame-skip rate: skip N source frames between processed frames
	Quant int // encoder quantisation level
}

// Label renders the canonical "WIDTHxSKIPxQUANT" form used in file names,
// store keys and API parameters.
func (c Config) Label() string {
	return fmt.Sprintf("%dx%dx%d", c.Width, c.Skip, c.Quant)
}

func (c Config) String() string { return c.Label() }

// Less orders configs by the (Width, Skip, Quant) tuple.
func (c Config) Less(o Config) bool {
	if c.Width != o.Width {
		return c.Width < o.Width
	}
	if c.Skip != o.Skip {
		return c.Skip < o.Skip
	}
	return c.Quant < o.Quant
}

// ParseConfigLabel parses the "WIDTHxSKIPxQUANT" form produced by Label.
func ParseConfigLabel(s string) (Config, error) {
	parts := strings.Split(s, "x")
	if len(parts) != 3 {
		return Config{}, fmt.Errorf("config label %q: want WIDTHxSKIPxQUANT", s)
	}
	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return Config{}, fmt.Errorf("config label %q: bad component %q", s, p)
		}
		vals[i] = v
	}
	return Config{Width: vals[0], Skip: vals[1], Quant: vals[2]}, nil
}

// DetectionRecord is one detected object in one frame. Multiple records may
// share a frame number. Records are immutable once read.
type DetectionRecord struct {
	FrameNum    int     // source frame number, >= 0
	ProcTime    float64 // detector processing time in seconds
	Label       string  // object class, e.g. "person"
	Probability float64 // detector confidence in [0,1]
	X, Y        float64 // bounding box origin
	W, H        float64 // bounding box width/height, > 0
}

// SizeRecord is the encoded size of one frame. At most one per frame per
// configuration stream.
type SizeRecord struct {
	FrameNum  int
	SizeBytes int64
}

// FrameScore holds the confusion counts for one frame of one configuration,
// scored against the ground truth.
type FrameScore struct {
	FrameNum      int
	TruePositive  int
	FalsePositive int
	FalseNegative int
}

// FrameProcTime is one entry of the per-frame processing time series. Frames
// with no detections carry NaN.
type FrameProcTime struct {
	FrameNum int
	Seconds  float64
}

// WindowSummary aggregates one configuration's measurements over one
// fixed-width time window. Windows containing no frames at all are omitted
// from summary sequences rather than emitted as zeros.
type WindowSummary struct {
	Interval     int     // window start = Interval * window_seconds
	BandwidthBPS float64 // sum(size_bytes)*8 / window_seconds
	F1           float64 // aggregated F1 over the window; meaningless unless F1Defined
	F1Defined    bool    // false when the window holds no scored frames
	MeanProcTime float64 // mean detector seconds over frames in the window
	Partial      bool    // trailing window covering less than window_seconds of data
}

// ProfilePoint is one configuration's (bandwidth, accuracy) operating point,
// reduced from its full WindowSummary series.
type ProfilePoint struct {
	Config       Config
	BandwidthBPS float64
	Accuracy     float64
}

// Decision is one reconfiguration event emitted by the Trigger.
type Decision struct {
	Interval    int     // window index at which the decision fired
	Config      Config  // chosen configuration
	Metric      string  // triggering metric name
	MetricValue float64 // observed value that crossed the bound
}

// TraceEntry is one row of the replay trace: the configuration active during
// an interval together with its realised bandwidth and accuracy. Intervals
// where the active configuration produced no summary carry NaN metrics.
type TraceEntry struct {
	Interval     int
	Config       Config
	BandwidthBPS float64
	Accuracy     float64
}

// Diagnostic records a configuration or window that was dropped from
// downstream outputs, with the reason. Dropped data must never vanish
// silently.
type Diagnostic struct {
	Config Config
	Reason string
}
