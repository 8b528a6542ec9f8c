package analysis

import (
	"sort"

	"github.com/banshee-data/stream.report/internal/monitoring"
)

// Matcher pairs predicted detections with ground-truth detections for a
// single frame. The returned slice has one entry per prediction: the index
// of the matched ground-truth box, or -1 for no match. Each ground-truth box
// is matched at most once.
type Matcher interface {
	Match(preds, truth []DetectionRecord, iouThreshold float64) []int
}

// GreedyMatcher assigns pairs best-IoU-first: all candidate (prediction,
// ground-truth) pairs with matching labels and IoU at or above the threshold
// are sorted by descending IoU and consumed greedily, so each prediction and
// each ground-truth box is used at most once.
type GreedyMatcher struct{}

func (GreedyMatcher) Match(preds, truth []DetectionRecord, iouThreshold float64) []int {
	type pair struct {
		pred, gt int
		iou      float64
	}
	var pairs []pair
	for i, p := range preds {
		for j, g := range truth {
			if p.Label != g.Label {
				continue
			}
			if iou := p.BBox().IoU(g.BBox()); iou >= iouThreshold {
				pairs = append(pairs, pair{pred: i, gt: j, iou: iou})
			}
		}
	}
	// Descending IoU; ties broken by (pred, gt) index for determinism.
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].iou != pairs[b].iou {
			return pairs[a].iou > pairs[b].iou
		}
		if pairs[a].pred != pairs[b].pred {
			return pairs[a].pred < pairs[b].pred
		}
		return pairs[a].gt < pairs[b].gt
	})

	assign := make([]int, len(preds))
	for i := range assign {
		assign[i] = -1
	}
	gtUsed := make([]bool, len(truth))
	for _, p := range pairs {
		if assign[p.pred] != -1 || gtUsed[p.gt] {
			continue
		}
		assign[p.pred] = p.gt
		gtUsed[p.gt] = true
	}
	return assign
}

// HungarianMatcher assigns pairs by solving the optimal assignment problem
// over 1-IoU costs. Label mismatches and pairs below the IoU threshold are
// forbidden.
type HungarianMatcher struct{}

func (HungarianMatcher) Match(preds, truth []DetectionRecord, iouThreshold float64) []int {
	if len(preds) == 0 {
		return nil
	}
	cost := make([][]float64, len(preds))
	for i, p := range preds {
		cost[i] = make([]float64, len(truth))
		for j, g := range truth {
			iou := p.BBox().IoU(g.BBox())
			if p.Label != g.Label || iou < iouThreshold {
				cost[i][j] = hungarianInf
			} else {
				cost[i][j] = 1 - iou
			}
		}
	}
	return hungarianAssign(cost)
}

// Scorer compares one configuration's detections against the ground-truth
// configuration's detections, producing per-frame confusion counts.
type Scorer struct {
	// IoUThreshold is the minimum overlap for a prediction to count as a
	// true positive. Defaults to 0.5 when zero.
	IoUThreshold float64

	// Matcher performs the per-frame assignment. Defaults to GreedyMatcher.
	Matcher Matcher

	// SkipRate is the configuration's frame-skip rate. When positive, the
	// candidate stream only processed every (SkipRate+1)-th source frame, so
	// ground-truth frame i is scored against candidate frame i/(SkipRate+1).
	SkipRate int
}

// ValidateDetection checks schema/range constraints on a single record.
func ValidateDetection(d DetectionRecord) error {
	if d.FrameNum < 0 {
		return &MalformedRecordError{FrameNum: d.FrameNum, Reason: "negative frame number"}
	}
	if d.Probability < 0 || d.Probability > 1 {
		return &MalformedRecordError{FrameNum: d.FrameNum, Reason: "probability outside [0,1]"}
	}
	if d.W <= 0 || d.H <= 0 {
		return &MalformedRecordError{FrameNum: d.FrameNum, Reason: "non-positive box dimensions"}
	}
	return nil
}

// Score produces one FrameScore per frame present in either stream. Frames
// with no ground truth and no predictions produce no score at all, so later
// accuracy averages are not diluted by empty frames. Malformed records are
// logged, skipped, and returned as dropped errors; they never reach the
// counts.
func (s *Scorer) Score(candidate, truth []DetectionRecord) (scores []FrameScore, dropped []error) {
	iouThreshold := s.IoUThreshold
	if iouThreshold == 0 {
		iouThreshold = 0.5
	}
	matcher := s.Matcher
	if matcher == nil {
		matcher = GreedyMatcher{}
	}

	candByFrame, candDropped := groupByFrame(candidate)
	truthByFrame, truthDropped := groupByFrame(truth)
	dropped = append(candDropped, truthDropped...)

	frames := map[int]bool{}
	for f := range truthByFrame {
		frames[f] = true
	}
	for f := range candByFrame {
		if s.SkipRate > 0 {
			// A skipped stream's frame f stands in for source frames
			// f*(skip+1) .. f*(skip+1)+skip.
			for off := 0; off <= s.SkipRate; off++ {
				frames[f*(s.SkipRate+1)+off] = true
			}
		} else {
			frames[f] = true
		}
	}

	ordered := make([]int, 0, len(frames))
	for f := range frames {
		ordered = append(ordered, f)
	}
	sort.Ints(ordered)

	for _, frame := range ordered {
		candFrame := frame
		if s.SkipRate > 0 {
			candFrame = frame / (s.SkipRate + 1)
		}
		preds := candByFrame[candFrame]
		gts := truthByFrame[frame]
		if len(preds) == 0 && len(gts) == 0 {
			continue
		}

		assign := matcher.Match(preds, gts, iouThreshold)
		tp := 0
		for _, gt := range assign {
			if gt >= 0 {
				tp++
			}
		}
		scores = append(scores, FrameScore{
			FrameNum:      frame,
			TruePositive:  tp,
			FalsePositive: len(preds) - tp,
			FalseNegative: len(gts) - tp,
		})
	}
	return scores, dropped
}

// groupByFrame buckets records by frame number, validating each record and
// dropping malformed ones.
func groupByFrame(records []DetectionRecord) (map[int][]DetectionRecord, []error) {
	byFrame := make(map[int][]DetectionRecord)
	var dropped []error
	for _, d := range records {
		if err := ValidateDetection(d); err != nil {
			monitoring.Logf("dropping record: %v", err)
			dropped = append(dropped, err)
			continue
		}
		byFrame[d.FrameNum] = append(byFrame[d.FrameNum], d)
	}
	return byFrame, dropped
}

// Precision is TP / (TP + FP). Returns 0 when the denominator is 0.
func Precision(tp, fp int) float64 {
	if tp+fp == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

// Recall is TP / (TP + FN). Returns 0 when the denominator is 0.
func Recall(tp, fn int) float64 {
	if tp+fn == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

// F1Score is the harmonic mean of precision and recall, computed directly
// from confusion counts: 2·TP / (2·TP + FP + FN).
func F1Score(tp, fp, fn int) float64 {
	denom := 2*tp + fp + fn
	if denom == 0 {
		return 0
	}
	return 2 * float64(tp) / float64(denom)
}
