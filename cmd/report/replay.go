package main

import (
	"log"
	"math"

	"github.com/banshee-data/stream.report/internal/analysis"
	"github.com/banshee-data/stream.report/internal/config"
)

// replayTrigger feeds the run's window summaries through the online decision
// loop as if they had arrived live: at each interval the summary of the
// configuration active at that point is observed, and each decision switches
// the stream being followed. Returns false when the frontier is empty.
func replayTrigger(res *analysis.RunResult, tuning *config.TuningConfig) ([]analysis.Decision, analysis.Config, bool) {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	if len(res.Frontier) == 0 {
		return nil, analysis.Config{}, false
	}

	budget := tuning.GetBandwidthHighWatermark()
	if budget <= 0 {
		budget = math.Inf(1)
	}
	start, ok := res.Frontier.FindByBandwidth(budget)
	if !ok {
		start = res.Frontier[0]
	}

	trig := analysis.NewTrigger(analysis.TriggerOptionsFromTuning(tuning), res.Frontier, start.Config)

	byInterval := make(map[analysis.Config]map[int]analysis.WindowSummary, len(res.Summaries))
	maxInterval := -1
	for cfg, series := range res.Summaries {
		m := make(map[int]analysis.WindowSummary, len(series))
		for _, ws := range series {
			m[ws.Interval] = ws
			if ws.Interval > maxInterval {
				maxInterval = ws.Interval
			}
		}
		byInterval[cfg] = m
	}

	var decisions []analysis.Decision
	for i := 0; i <= maxInterval; i++ {
		ws, ok := byInterval[trig.Current()][i]
		if !ok {
			continue // active stream has no data for this interval
		}
		d, err := trig.Observe(ws)
		if err != nil {
			log.Printf("replay: interval %d: %v", i, err)
			break
		}
		if d != nil {
			decisions = append(decisions, *d)
		}
	}
	return decisions, start.Config, true
}
