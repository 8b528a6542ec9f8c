package analysis

import (
	"math"
	"sort"

	"github.com/banshee-data/stream.report/internal/monitoring"
)

// GenerateTrace replays a decision sequence over historical summaries and
// produces one entry per interval from 0 through the highest interval
// observed in any summary series, with no gaps: the active configuration is
// carried forward from the last decision at or before each interval
// (initial before the first decision). Each entry carries the realised
// bandwidth and accuracy of the active configuration in that interval;
// intervals where the active configuration produced no summary are emitted
// with NaN metrics and logged.
//
// The trace is consumed verbatim, in interval order, by the client/server
// replay harness.
func GenerateTrace(summaries map[Config][]WindowSummary, decisions []Decision, initial Config) []TraceEntry {
	maxInterval := -1
	index := make(map[Config]map[int]WindowSummary, len(summaries))
	for cfg, series := range summaries {
		byInterval := make(map[int]WindowSummary, len(series))
		for _, ws := range series {
			byInterval[ws.Interval] = ws
			if ws.Interval > maxInterval {
				maxInterval = ws.Interval
			}
		}
		index[cfg] = byInterval
	}
	if maxInterval < 0 {
		return nil
	}

	ordered := make([]Decision, len(decisions))
	copy(ordered, decisions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Interval < ordered[j].Interval
	})

	trace := make([]TraceEntry, 0, maxInterval+1)
	active := initial
	next := 0
	for interval := 0; interval <= maxInterval; interval++ {
		for next < len(ordered) && ordered[next].Interval <= interval {
			active = ordered[next].Config
			next++
		}
		entry := TraceEntry{
			Interval:     interval,
			Config:       active,
			BandwidthBPS: math.NaN(),
			Accuracy:     math.NaN(),
		}
		if ws, ok := index[active][interval]; ok {
			entry.BandwidthBPS = ws.BandwidthBPS
			if ws.F1Defined {
				entry.Accuracy = ws.F1
			}
		} else {
			monitoring.Logf("trace: no summary for %s at interval %d", active, interval)
		}
		trace = append(trace, entry)
	}
	return trace
}
