package analysis

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/stream.report/internal/config"
	"github.com/banshee-data/stream.report/internal/monitoring"
)

// RunInput carries the fully materialised measurements for one analysis run.
// The configuration set is closed before analysis begins.
type RunInput struct {
	// GroundTruth designates the configuration whose detections define
	// correctness. It must be present in Detections.
	GroundTruth Config

	// Detections and Sizes are the two record streams per configuration.
	Detections map[Config][]DetectionRecord
	Sizes      map[Config][]SizeRecord
}

// RunResult is the output of one analysis run over a closed configuration
// set.
type RunResult struct {
	RunID       string
	GroundTruth Config

	// Summaries and ProcTimes are keyed by configuration. The ground truth
	// appears here (its own summaries are valid) but not in Profile or
	// Frontier.
	Summaries map[Config][]WindowSummary
	ProcTimes map[Config][]FrameProcTime

	// Profile holds one point per configuration that produced usable
	// windows, ordered by configuration tuple.
	Profile []ProfilePoint

	// Frontier is the non-dominated subset of Profile.
	Frontier Frontier

	// Diagnostics lists every configuration dropped from Profile and every
	// batch of records skipped, with reasons.
	Diagnostics []Diagnostic
}

// FindGroundTruth applies the naming convention for the ground-truth
// configuration: zero skip and zero quantisation at the highest resolution
// present. Returns ConfigMismatchError when no such configuration exists.
func FindGroundTruth(configs []Config) (Config, error) {
	best := Config{Width: -1}
	for _, c := range configs {
		if c.Skip == 0 && c.Quant == 0 && c.Width > best.Width {
			best = c
		}
	}
	if best.Width < 0 {
		return Config{}, &ConfigMismatchError{}
	}
	return best, nil
}

// Run executes the full batch pipeline: score every configuration against
// the ground truth, summarise into windows, reduce to profile points, and
// compute the Pareto frontier. Configurations fail independently: a
// configuration with insufficient data is dropped from the profile with a
// diagnostic, while a missing ground truth aborts the whole run.
//
// Each configuration's pipeline is independent, so they run on separate
// goroutines writing to disjoint result slots.
func Run(in RunInput, tuning *config.TuningConfig) (*RunResult, error) {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}

	truth, ok := in.Detections[in.GroundTruth]
	if !ok {
		return nil, &ConfigMismatchError{GroundTruth: in.GroundTruth}
	}
	truth = limitFrames(truth, tuning.GetFrameLimit())

	filter := map[string]bool{}
	for _, label := range tuning.ConfigFilter {
		filter[label] = true
	}

	configs := make([]Config, 0, len(in.Detections))
	seen := map[Config]bool{}
	for c := range in.Detections {
		seen[c] = true
		configs = append(configs, c)
	}
	for c := range in.Sizes {
		if !seen[c] {
			configs = append(configs, c)
		}
	}
	if len(filter) > 0 {
		kept := configs[:0]
		for _, c := range configs {
			if filter[c.Label()] || c == in.GroundTruth {
				kept = append(kept, c)
			}
		}
		configs = kept
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Less(configs[j]) })

	res := &RunResult{
		RunID:       uuid.NewString(),
		GroundTruth: in.GroundTruth,
		Summaries:   make(map[Config][]WindowSummary, len(configs)),
		ProcTimes:   make(map[Config][]FrameProcTime, len(configs)),
	}

	type slot struct {
		summaries []WindowSummary
		times     []FrameProcTime
		point     ProfilePoint
		pointOK   bool
		diags     []Diagnostic
	}
	slots := make([]slot, len(configs))

	summarizer := Summarizer{
		WindowSeconds: tuning.GetWindowSeconds(),
		FrameRate:     tuning.GetFrameRate(),
	}

	var wg sync.WaitGroup
	for i, cfg := range configs {
		wg.Add(1)
		go func(i int, cfg Config) {
			defer wg.Done()
			s := &slots[i]

			dets := limitFrames(in.Detections[cfg], tuning.GetFrameLimit())
			scorer := &Scorer{
				IoUThreshold: tuning.GetIoUThreshold(),
				Matcher:      matcherFor(tuning.GetMatcher()),
				SkipRate:     cfg.Skip,
			}
			scores, dropped := scorer.Score(dets, truth)
			if n := len(dropped); n > 0 {
				s.diags = append(s.diags, Diagnostic{
					Config: cfg,
					Reason: fmt.Sprintf("%d malformed records skipped", n),
				})
			}

			s.times = ProcTimeSeries(dets)
			s.summaries = summarizer.Summarize(scores, in.Sizes[cfg], s.times)

			if cfg == in.GroundTruth {
				return // participates in scoring only, never in the profile
			}
			point, err := Profile(cfg, s.summaries)
			if err != nil {
				monitoring.Logf("run: dropping config %s: %v", cfg, err)
				s.diags = append(s.diags, Diagnostic{Config: cfg, Reason: err.Error()})
				return
			}
			s.point = point
			s.pointOK = true
		}(i, cfg)
	}
	wg.Wait()

	for i, cfg := range configs {
		s := &slots[i]
		if len(s.summaries) > 0 {
			res.Summaries[cfg] = s.summaries
		}
		if len(s.times) > 0 {
			res.ProcTimes[cfg] = s.times
		}
		if s.pointOK {
			res.Profile = append(res.Profile, s.point)
		}
		res.Diagnostics = append(res.Diagnostics, s.diags...)
	}

	res.Frontier = ParetoFrontier(res.Profile)
	return res, nil
}

func matcherFor(name string) Matcher {
	if name == "hungarian" {
		return HungarianMatcher{}
	}
	return GreedyMatcher{}
}

// limitFrames truncates a detection stream to frames below limit. A limit of
// zero keeps everything.
func limitFrames(dets []DetectionRecord, limit int) []DetectionRecord {
	if limit <= 0 {
		return dets
	}
	out := dets[:0:0]
	for _, d := range dets {
		if d.FrameNum < limit {
			out = append(out, d)
		}
	}
	return out
}
