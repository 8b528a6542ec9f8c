package analysis

import "sort"

// Frontier is the Pareto-optimal subset of a profile under the objective
// "minimize bandwidth, maximize accuracy", ordered by ascending bandwidth.
type Frontier []ProfilePoint

// Dominates reports whether a dominates b: a is no worse on both objectives
// and strictly better on at least one.
func Dominates(a, b ProfilePoint) bool {
	if a.BandwidthBPS > b.BandwidthBPS || a.Accuracy < b.Accuracy {
		return false
	}
	return a.BandwidthBPS < b.BandwidthBPS || a.Accuracy > b.Accuracy
}

// ParetoFrontier filters a profile to its non-dominated subset. Candidates
// are sorted by ascending bandwidth (ties broken by descending accuracy,
// then by configuration tuple order), then scanned once, keeping a point
// only when its accuracy exceeds the best accuracy retained so far. Empty
// input yields an empty frontier.
func ParetoFrontier(points []ProfilePoint) Frontier {
	if len(points) == 0 {
		return Frontier{}
	}
	sorted := make([]ProfilePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.BandwidthBPS != b.BandwidthBPS {
			return a.BandwidthBPS < b.BandwidthBPS
		}
		if a.Accuracy != b.Accuracy {
			return a.Accuracy > b.Accuracy
		}
		return a.Config.Less(b.Config)
	})

	frontier := Frontier{}
	bestAcc := -1.0
	for _, p := range sorted {
		if p.Accuracy > bestAcc {
			frontier = append(frontier, p)
			bestAcc = p.Accuracy
		}
	}
	return frontier
}

// FindByBandwidth returns the frontier point with the highest bandwidth
// strictly below target, i.e. the most accurate operating point that fits a
// bandwidth budget. Returns false when no point fits.
func (f Frontier) FindByBandwidth(target float64) (ProfilePoint, bool) {
	var best ProfilePoint
	found := false
	for _, p := range f {
		if p.BandwidthBPS < target {
			best = p
			found = true
		}
	}
	return best, found
}

// FindByAccuracy returns the cheapest frontier point whose accuracy is at
// least target. Returns false when no point qualifies.
func (f Frontier) FindByAccuracy(target float64) (ProfilePoint, bool) {
	for _, p := range f {
		if p.Accuracy >= target {
			return p, true
		}
	}
	return ProfilePoint{}, false
}

// Diff measures drift between this frontier and a fresh profile as summed
// squared distance in (bandwidth, accuracy) for each frontier configuration
// found in the profile. Configurations absent from the profile are skipped.
func (f Frontier) Diff(profile []ProfilePoint) (bwDrift, accDrift float64) {
	byConfig := make(map[Config]ProfilePoint, len(profile))
	for _, p := range profile {
		byConfig[p.Config] = p
	}
	for _, p := range f {
		q, ok := byConfig[p.Config]
		if !ok {
			continue
		}
		db := q.BandwidthBPS - p.BandwidthBPS
		da := q.Accuracy - p.Accuracy
		bwDrift += db * db
		accDrift += da * da
	}
	return bwDrift, accDrift
}
