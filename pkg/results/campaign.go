// Package results holds the outcome of a simulation campaign: per-run
// records, cross-run indicator statistics and sequence tallies. Campaigns
// accumulate with per-run-then-merge: workers produce one RunResult each and
// a single collector merges them, so the structures carry no locks.
package results

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/sluice/pkg/domain"
)

// ErrUnknownIndicator is returned when a campaign has no indicator with the
// requested name.
var ErrUnknownIndicator = errors.New("unknown indicator")

// Campaign aggregates the runs of one simulation. Merge is not safe for
// concurrent use; the runner serializes merges through its collector.
type Campaign struct {
	ID        uuid.UUID               `json:"id" yaml:"id"`
	System    string                  `json:"system" yaml:"system"`
	CreatedAt time.Time               `json:"created_at" yaml:"created_at"`
	Config    domain.SimulationConfig `json:"config" yaml:"config"`

	Indicators map[string]*IndicatorResult `json:"indicators,omitempty" yaml:"indicators,omitempty"`
	Runs       []RunRecord                 `json:"runs,omitempty" yaml:"runs,omitempty"`

	// Sealed carries an encrypted campaign payload written by the
	// persistence encryption middleware. When set, the campaign is an
	// envelope: ID, System and CreatedAt identify it, everything else
	// lives inside the seal.
	Sealed []byte `json:"sealed,omitempty" yaml:"sealed,omitempty"`
}

// NewCampaign creates an empty campaign for one system and configuration.
func NewCampaign(system string, cfg domain.SimulationConfig) *Campaign {
	return &Campaign{
		ID:         uuid.New(),
		System:     system,
		CreatedAt:  time.Now().UTC(),
		Config:     cfg,
		Indicators: make(map[string]*IndicatorResult),
	}
}

// NbRuns returns the configured number of runs.
func (c *Campaign) NbRuns() int { return c.Config.Runs }

// SamplePoints returns the campaign's sample instants.
func (c *Campaign) SamplePoints() []float64 { return c.Config.SamplePoints() }

// AddIndicator declares one indicator series group before any merge. keys
// are the resolved component.variable labels contributing a series each.
func (c *Campaign) AddIndicator(name string, stats []domain.Stat, keys []string) *IndicatorResult {
	times := c.Config.SamplePoints()
	r := &IndicatorResult{Name: name, Stats: stats, Times: times}
	for _, k := range keys {
		r.Pairs = append(r.Pairs, PairAccum{
			Key:   k,
			Sum:   make([]float64, len(times)),
			SumSq: make([]float64, len(times)),
		})
	}
	c.Indicators[name] = r
	return r
}

// Indicator returns the named indicator result.
func (c *Campaign) Indicator(name string) (*IndicatorResult, error) {
	r, ok := c.Indicators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndicator, name)
	}
	return r, nil
}

// IndicatorNames returns the indicator names in sorted order.
func (c *Campaign) IndicatorNames() []string {
	names := make([]string, 0, len(c.Indicators))
	for name := range c.Indicators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge folds one completed run into the campaign: its samples into every
// indicator accumulator and its record into the run list.
func (c *Campaign) Merge(r *RunResult) error {
	for _, ind := range c.Indicators {
		for pi := range ind.Pairs {
			pa := &ind.Pairs[pi]
			vals, ok := r.Samples[pa.Key]
			if !ok {
				return fmt.Errorf("run %d: no samples for series %s", r.Record.Run, pa.Key)
			}
			if len(vals) != len(ind.Times) {
				return fmt.Errorf("run %d: series %s has %d samples, schedule has %d points",
					r.Record.Run, pa.Key, len(vals), len(ind.Times))
			}
			for i, v := range vals {
				pa.Sum[i] += v
				pa.SumSq[i] += v * v
			}
		}
		ind.N++
	}
	c.Runs = append(c.Runs, r.Record)
	return nil
}

// SortRuns orders the run records by run index. Parallel execution merges
// runs in completion order; sorting restores the declared order.
func (c *Campaign) SortRuns() {
	sort.Slice(c.Runs, func(i, j int) bool { return c.Runs[i].Run < c.Runs[j].Run })
}

// TargetHits counts, per target name, the runs that reached it.
func (c *Campaign) TargetHits() map[string]int {
	hits := make(map[string]int)
	for _, r := range c.Runs {
		for _, name := range r.ReachedTargets {
			hits[name]++
		}
	}
	return hits
}

// SequenceTally is one group of runs sharing an identical monitored
// transition sequence.
type SequenceTally struct {
	// Transitions holds the qualified transition IDs in firing order. A
	// run without monitored firings tallies under an empty sequence.
	Transitions []string `json:"transitions" yaml:"transitions"`
	Count       int      `json:"count" yaml:"count"`
	Runs        []int    `json:"runs" yaml:"runs"`
}

// SequenceTallies groups the runs by their monitored transition sequence,
// most frequent first. Sequence identity ignores firing times: two runs
// follow the same path when the same transitions fired in the same order.
func (c *Campaign) SequenceTallies() []SequenceTally {
	byKey := make(map[string]*SequenceTally)
	var order []string
	for _, r := range c.Runs {
		ids := make([]string, len(r.Sequence))
		for i, f := range r.Sequence {
			ids[i] = f.ID()
		}
		key := strings.Join(ids, "|")
		t, ok := byKey[key]
		if !ok {
			t = &SequenceTally{Transitions: ids}
			byKey[key] = t
			order = append(order, key)
		}
		t.Count++
		t.Runs = append(t.Runs, r.Run)
	}
	tallies := make([]SequenceTally, 0, len(order))
	for _, key := range order {
		t := byKey[key]
		sort.Ints(t.Runs)
		tallies = append(tallies, *t)
	}
	sort.SliceStable(tallies, func(i, j int) bool {
		if tallies[i].Count != tallies[j].Count {
			return tallies[i].Count > tallies[j].Count
		}
		return strings.Join(tallies[i].Transitions, "|") < strings.Join(tallies[j].Transitions, "|")
	})
	return tallies
}
