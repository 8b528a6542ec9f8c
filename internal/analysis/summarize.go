package analysis

import (
	"math"
	"sort"
)

// Summarizer aggregates per-frame scores and sizes into fixed-width time
// windows. Window boundaries are a deterministic function of frame number
// and the configured frame rate, so identical input always yields identical
// summary sequences.
type Summarizer struct {
	// WindowSeconds is the window width. Defaults to 5 when zero.
	WindowSeconds float64

	// FrameRate maps frame numbers to time. Defaults to 30 when zero.
	FrameRate float64
}

func (s Summarizer) windowSeconds() float64 {
	if s.WindowSeconds <= 0 {
		return 5
	}
	return s.WindowSeconds
}

func (s Summarizer) frameRate() float64 {
	if s.FrameRate <= 0 {
		return 30
	}
	return s.FrameRate
}

// windowIndex returns the window a frame falls in:
// floor((frame/frameRate) / windowSeconds).
func (s Summarizer) windowIndex(frameNum int) int {
	return int(math.Floor(float64(frameNum) / s.frameRate() / s.windowSeconds()))
}

// Summarize produces one WindowSummary per window that contains at least one
// size, score, or timing sample, in ascending interval order. Windows with
// no frames at all are omitted. The trailing window is flagged Partial when
// it covers less than WindowSeconds of data.
//
// times is the per-frame processing series (see ProcTimeSeries); it may be
// nil, in which case MeanProcTime is zero everywhere.
func (s Summarizer) Summarize(scores []FrameScore, sizes []SizeRecord, times []FrameProcTime) []WindowSummary {
	type bucket struct {
		bytes      int64
		tp, fp, fn int
		scored     bool
		procSum    float64
		procCount  int
	}
	buckets := make(map[int]*bucket)
	get := func(w int) *bucket {
		b, ok := buckets[w]
		if !ok {
			b = &bucket{}
			buckets[w] = b
		}
		return b
	}

	maxFrame := -1
	note := func(frame int) {
		if frame > maxFrame {
			maxFrame = frame
		}
	}

	for _, sz := range sizes {
		if sz.FrameNum < 0 || sz.SizeBytes < 0 {
			continue
		}
		b := get(s.windowIndex(sz.FrameNum))
		b.bytes += sz.SizeBytes
		note(sz.FrameNum)
	}
	for _, sc := range scores {
		if sc.FrameNum < 0 {
			continue
		}
		b := get(s.windowIndex(sc.FrameNum))
		b.tp += sc.TruePositive
		b.fp += sc.FalsePositive
		b.fn += sc.FalseNegative
		b.scored = true
		note(sc.FrameNum)
	}
	for _, ft := range times {
		if ft.FrameNum < 0 || math.IsNaN(ft.Seconds) {
			continue
		}
		b := get(s.windowIndex(ft.FrameNum))
		b.procSum += ft.Seconds
		b.procCount++
		note(ft.FrameNum)
	}

	if maxFrame < 0 {
		return nil
	}

	// The trailing window is partial when the data runs out before the
	// window does.
	dataSeconds := float64(maxFrame+1) / s.frameRate()

	intervals := make([]int, 0, len(buckets))
	for w := range buckets {
		intervals = append(intervals, w)
	}
	sort.Ints(intervals)

	out := make([]WindowSummary, 0, len(intervals))
	for _, w := range intervals {
		b := buckets[w]
		ws := WindowSummary{
			Interval:     w,
			BandwidthBPS: float64(b.bytes) * 8 / s.windowSeconds(),
			Partial:      float64(w+1)*s.windowSeconds() > dataSeconds,
		}
		if b.scored && b.tp+b.fp+b.fn > 0 {
			ws.F1 = F1Score(b.tp, b.fp, b.fn)
			ws.F1Defined = true
		}
		if b.procCount > 0 {
			ws.MeanProcTime = b.procSum / float64(b.procCount)
		}
		out = append(out, ws)
	}
	return out
}

// ProcTimeSeries extracts the per-frame processing time series for a
// configuration's detections: one entry per frame from 0 through the highest
// frame seen, NaN where the frame produced no detections. The series is
// deliberately not windowed; it feeds per-frame diagnostics.
func ProcTimeSeries(dets []DetectionRecord) []FrameProcTime {
	maxFrame := -1
	byFrame := make(map[int]float64)
	for _, d := range dets {
		if d.FrameNum < 0 {
			continue
		}
		if _, seen := byFrame[d.FrameNum]; !seen {
			// One timing sample per frame: the detector reports the same
			// elapsed time on every detection of a frame.
			byFrame[d.FrameNum] = d.ProcTime
		}
		if d.FrameNum > maxFrame {
			maxFrame = d.FrameNum
		}
	}
	if maxFrame < 0 {
		return nil
	}
	out := make([]FrameProcTime, maxFrame+1)
	for i := 0; i <= maxFrame; i++ {
		t, ok := byFrame[i]
		if !ok {
			t = math.NaN()
		}
		out[i] = FrameProcTime{FrameNum: i, Seconds: t}
	}
	return out
}
