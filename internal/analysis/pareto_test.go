package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func pp(width int, bw, acc float64) ProfilePoint {
	return ProfilePoint{Config: Config{Width: width}, BandwidthBPS: bw, Accuracy: acc}
}

func TestParetoFrontierFiltersDominated(t *testing.T) {
	profile := []ProfilePoint{
		pp(1, 10, 0.9),
		pp(2, 5, 0.5),
		pp(3, 20, 0.9),
		pp(4, 5, 0.6),
	}
	got := ParetoFrontier(profile)
	want := Frontier{pp(4, 5, 0.6), pp(1, 10, 0.9)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frontier mismatch (-want +got):\n%s", diff)
	}
}

func TestParetoInvariant(t *testing.T) {
	profile := []ProfilePoint{
		pp(1, 3, 0.2), pp(2, 7, 0.9), pp(3, 7, 0.8), pp(4, 1, 0.1),
		pp(5, 12, 0.95), pp(6, 2, 0.2), pp(7, 8, 0.9),
	}
	frontier := ParetoFrontier(profile)

	inFrontier := make(map[Config]bool)
	for _, p := range frontier {
		inFrontier[p.Config] = true
	}

	// No frontier point is dominated by any input point.
	for _, p := range frontier {
		for _, q := range profile {
			if Dominates(q, p) {
				t.Errorf("frontier point %+v dominated by %+v", p, q)
			}
		}
	}
	// Every excluded point is dominated by some frontier point.
	for _, p := range profile {
		if inFrontier[p.Config] {
			continue
		}
		dominated := false
		for _, q := range frontier {
			if Dominates(q, p) {
				dominated = true
				break
			}
		}
		if !dominated {
			t.Errorf("excluded point %+v not dominated by any frontier point", p)
		}
	}
}

func TestParetoMonotonicity(t *testing.T) {
	profile := []ProfilePoint{
		pp(1, 10, 0.9),
		pp(2, 5, 0.6),
	}
	before := ParetoFrontier(profile)

	// A strictly-dominated extra point must not change the frontier.
	withDominated := append(append([]ProfilePoint{}, profile...), pp(3, 11, 0.85))
	after := ParetoFrontier(withDominated)

	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("dominated point changed frontier (-before +after):\n%s", diff)
	}
}

func TestParetoEmptyInput(t *testing.T) {
	got := ParetoFrontier(nil)
	if got == nil {
		t.Fatal("frontier is nil, want empty")
	}
	if len(got) != 0 {
		t.Errorf("frontier = %v, want empty", got)
	}
}

func TestParetoDeterministicOrdering(t *testing.T) {
	// Shuffled input yields identically ordered output.
	a := ParetoFrontier([]ProfilePoint{pp(1, 10, 0.9), pp(2, 5, 0.6), pp(3, 2, 0.3)})
	b := ParetoFrontier([]ProfilePoint{pp(3, 2, 0.3), pp(1, 10, 0.9), pp(2, 5, 0.6)})
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("frontier depends on input order (-a +b):\n%s", diff)
	}
	for i := 1; i < len(a); i++ {
		if a[i].BandwidthBPS <= a[i-1].BandwidthBPS {
			t.Errorf("frontier not in ascending bandwidth order at %d", i)
		}
	}
}

func TestFindByBandwidth(t *testing.T) {
	f := Frontier{pp(1, 2, 0.3), pp(2, 5, 0.6), pp(3, 10, 0.9)}

	p, ok := f.FindByBandwidth(7)
	if !ok || p.BandwidthBPS != 5 {
		t.Errorf("FindByBandwidth(7) = %+v,%v, want 5bps point", p, ok)
	}
	if _, ok := f.FindByBandwidth(1); ok {
		t.Error("FindByBandwidth(1) found a point, want none")
	}
	// Budget is exclusive.
	p, ok = f.FindByBandwidth(10)
	if !ok || p.BandwidthBPS != 5 {
		t.Errorf("FindByBandwidth(10) = %+v,%v, want 5bps point", p, ok)
	}
}

func TestFindByAccuracy(t *testing.T) {
	f := Frontier{pp(1, 2, 0.3), pp(2, 5, 0.6), pp(3, 10, 0.9)}

	p, ok := f.FindByAccuracy(0.5)
	if !ok || p.Accuracy != 0.6 {
		t.Errorf("FindByAccuracy(0.5) = %+v,%v, want 0.6 point", p, ok)
	}
	if _, ok := f.FindByAccuracy(0.95); ok {
		t.Error("FindByAccuracy(0.95) found a point, want none")
	}
}

func TestFrontierDiff(t *testing.T) {
	f := Frontier{pp(1, 10, 0.9)}
	fresh := []ProfilePoint{pp(1, 12, 0.8), pp(2, 5, 0.5)}

	bwDrift, accDrift := f.Diff(fresh)
	if bwDrift != 4 {
		t.Errorf("bwDrift = %v, want 4", bwDrift)
	}
	if delta := accDrift - 0.01; delta > 1e-12 || delta < -1e-12 {
		t.Errorf("accDrift = %v, want 0.01", accDrift)
	}
}
