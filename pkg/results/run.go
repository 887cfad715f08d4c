package results

import "github.com/aretw0/sluice/pkg/domain"

// RunRecord summarises one completed run.
type RunRecord struct {
	Run  int     `json:"run" yaml:"run"`
	Seed uint64  `json:"seed" yaml:"seed"`
	End  float64 `json:"end" yaml:"end"`
	// ReachedTargets lists the stop targets satisfied during the run, in
	// the order they were reached.
	ReachedTargets []string `json:"reached_targets,omitempty" yaml:"reached_targets,omitempty"`
	// Sequence holds the monitored transition firings in firing order.
	Sequence []domain.FiredTransition `json:"sequence,omitempty" yaml:"sequence,omitempty"`
}

// ReachedTarget reports whether the run stopped on a target.
func (r RunRecord) ReachedTarget() bool { return len(r.ReachedTargets) > 0 }

// RunResult is the complete outcome of one run before merging: the record
// plus the raw sampled values, one slice per observed series key, aligned
// with the campaign's sample points.
type RunResult struct {
	Record  RunRecord
	Samples map[string][]float64
}
