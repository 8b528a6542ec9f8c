package measure

import (
	"context"
	"time"

	"github.com/banshee-data/stream.report/internal/analysis"
	"github.com/banshee-data/stream.report/internal/timeutil"
)

// DecisionHandler receives each reconfiguration decision a Follower emits.
type DecisionHandler func(analysis.Decision)

// Follower drives an online decision loop off the store: it periodically
// polls for newly stored window summaries of the currently active
// configuration and feeds them to a Trigger. When the trigger switches
// configurations the follower switches the stream it reads.
type Follower struct {
	store      *Store
	runID      string
	trig       *analysis.Trigger
	clock      timeutil.Clock
	interval   time.Duration
	onDecision DecisionHandler

	next int // first window interval not yet observed
}

// NewFollower wires a trigger to a stored run. A nil clock uses real time.
func NewFollower(store *Store, runID string, trig *analysis.Trigger, clock timeutil.Clock, pollInterval time.Duration, onDecision DecisionHandler) *Follower {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Follower{
		store:      store,
		runID:      runID,
		trig:       trig,
		clock:      clock,
		interval:   pollInterval,
		onDecision: onDecision,
	}
}

// Poll observes every stored summary of the active configuration that has
// not been seen yet, in interval order. After a decision the remaining
// intervals are read from the newly chosen configuration's stream.
func (f *Follower) Poll() error {
	for {
		series, err := f.store.Summaries(f.runID, f.trig.Current())
		if err != nil {
			return err
		}

		switched := false
		for _, ws := range series {
			if ws.Interval < f.next {
				continue
			}
			d, err := f.trig.Observe(ws)
			if err != nil {
				return err
			}
			f.next = ws.Interval + 1
			if d != nil {
				if f.onDecision != nil {
					f.onDecision(*d)
				}
				switched = true
				break
			}
		}
		if !switched {
			return nil
		}
	}
}

// Run polls on a ticker until the context is cancelled or a poll fails.
func (f *Follower) Run(ctx context.Context) error {
	ticker := f.clock.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			if err := f.Poll(); err != nil {
				return err
			}
		}
	}
}
