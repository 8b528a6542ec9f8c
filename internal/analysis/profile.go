package analysis

import "gonum.org/v1/gonum/stat"

// Profile reduces one configuration's full summary series to a single
// (bandwidth, accuracy) operating point. Bandwidth is the arithmetic mean
// over complete (non-partial) windows; accuracy is the arithmetic mean over
// complete windows where F1 is defined. Returns InsufficientDataError when
// no complete window exists, or none carries a defined accuracy.
func Profile(cfg Config, summaries []WindowSummary) (ProfilePoint, error) {
	var bw, acc []float64
	for _, ws := range summaries {
		if ws.Partial {
			continue
		}
		bw = append(bw, ws.BandwidthBPS)
		if ws.F1Defined {
			acc = append(acc, ws.F1)
		}
	}
	if len(bw) == 0 {
		return ProfilePoint{}, &InsufficientDataError{Config: cfg, Reason: "no complete windows"}
	}
	if len(acc) == 0 {
		return ProfilePoint{}, &InsufficientDataError{Config: cfg, Reason: "no windows with defined accuracy"}
	}
	return ProfilePoint{
		Config:       cfg,
		BandwidthBPS: stat.Mean(bw, nil),
		Accuracy:     stat.Mean(acc, nil),
	}, nil
}
