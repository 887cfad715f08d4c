package domain

// SelectAll is the indicator selector matching every component that exposes
// the observed variable.
const SelectAll = "."

// Stat identifies a cross-run statistic computed per sample point.
type Stat string

const (
	// StatMean is the arithmetic mean across runs.
	StatMean Stat = "mean"
	// StatStddev is the sample standard deviation across runs.
	StatStddev Stat = "stddev"
	// StatP90 is the half-width of the 90% confidence interval on the
	// mean, so the interval is mean ± p90.
	StatP90 Stat = "p90"
)

// Valid reports whether s is a known statistic.
func (s Stat) Valid() bool {
	return s == StatMean || s == StatStddev || s == StatP90
}

// Indicator declares an observation: one variable, sampled on every matching
// component at each schedule point of every run, folded into the requested
// statistics across runs.
type Indicator struct {
	Name     string `json:"name" yaml:"name"`
	Selector string `json:"selector" yaml:"selector"`
	Var      string `json:"var" yaml:"var"`
	Stats    []Stat `json:"stats" yaml:"stats"`
}

// SeriesKey is the label of one observed (component, variable) pair inside an
// indicator.
func SeriesKey(component, variable string) string {
	return component + "." + variable
}
