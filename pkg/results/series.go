package results

import (
	"fmt"
	"math"

	"github.com/aretw0/sluice/pkg/domain"
)

// z90 is the two-sided 90% normal quantile used for confidence half-widths.
const z90 = 1.6448536269514722

// Sample is one statistic value at one sample instant.
type Sample struct {
	Time  float64 `json:"time" yaml:"time"`
	Value float64 `json:"value" yaml:"value"`
}

// Series is one statistic of one observed component.variable pair over the
// whole schedule.
type Series struct {
	Key     string      `json:"key" yaml:"key"`
	Stat    domain.Stat `json:"stat" yaml:"stat"`
	Samples []Sample    `json:"samples" yaml:"samples"`
}

// PairAccum carries the running sums of one component.variable pair, one
// slot per sample instant. Statistics derive from Sum, SumSq and the merged
// run count, so merging is a pure addition in any order.
type PairAccum struct {
	Key   string    `json:"key" yaml:"key"`
	Sum   []float64 `json:"sum" yaml:"sum"`
	SumSq []float64 `json:"sumsq" yaml:"sumsq"`
}

// IndicatorResult accumulates one indicator across runs. Statistics are
// computed on access from the accumulators, so results remain mergeable and
// serializable at any point.
type IndicatorResult struct {
	Name  string        `json:"name" yaml:"name"`
	Stats []domain.Stat `json:"stats" yaml:"stats"`
	Times []float64     `json:"times" yaml:"times"`
	Pairs []PairAccum   `json:"pairs" yaml:"pairs"`
	// N is the number of merged runs.
	N int `json:"n" yaml:"n"`
}

// Keys returns the series labels in declaration order.
func (r *IndicatorResult) Keys() []string {
	keys := make([]string, len(r.Pairs))
	for i := range r.Pairs {
		keys[i] = r.Pairs[i].Key
	}
	return keys
}

// Mean returns the across-run mean series, one per pair. Before any merge
// every value is zero.
func (r *IndicatorResult) Mean() []Series {
	return r.series(domain.StatMean, r.meanAt)
}

// Stddev returns the across-run sample standard deviation series.
func (r *IndicatorResult) Stddev() []Series {
	return r.series(domain.StatStddev, r.stddevAt)
}

// P90 returns the confidence half-width series: the mean lies within
// mean ± p90 with 90% confidence under the normal approximation.
func (r *IndicatorResult) P90() []Series {
	return r.series(domain.StatP90, r.p90At)
}

// Stat returns the series for one statistic kind.
func (r *IndicatorResult) Stat(kind domain.Stat) ([]Series, error) {
	switch kind {
	case domain.StatMean:
		return r.Mean(), nil
	case domain.StatStddev:
		return r.Stddev(), nil
	case domain.StatP90:
		return r.P90(), nil
	default:
		return nil, fmt.Errorf("unknown statistic %q", string(kind))
	}
}

func (r *IndicatorResult) series(stat domain.Stat, at func(pair, i int) float64) []Series {
	out := make([]Series, len(r.Pairs))
	for pi := range r.Pairs {
		samples := make([]Sample, len(r.Times))
		for i, t := range r.Times {
			samples[i] = Sample{Time: t, Value: at(pi, i)}
		}
		out[pi] = Series{Key: r.Pairs[pi].Key, Stat: stat, Samples: samples}
	}
	return out
}

func (r *IndicatorResult) meanAt(pair, i int) float64 {
	if r.N == 0 {
		return 0
	}
	return r.Pairs[pair].Sum[i] / float64(r.N)
}

// varAt is the unbiased sample variance, clamped at zero against float
// cancellation.
func (r *IndicatorResult) varAt(pair, i int) float64 {
	if r.N < 2 {
		return 0
	}
	n := float64(r.N)
	pa := &r.Pairs[pair]
	v := (pa.SumSq[i] - pa.Sum[i]*pa.Sum[i]/n) / (n - 1)
	if v < 0 {
		return 0
	}
	return v
}

func (r *IndicatorResult) stddevAt(pair, i int) float64 {
	return math.Sqrt(r.varAt(pair, i))
}

func (r *IndicatorResult) p90At(pair, i int) float64 {
	if r.N == 0 {
		return 0
	}
	return z90 * math.Sqrt(r.varAt(pair, i)/float64(r.N))
}
