package domain

// Logic selects how multiple upstream producers feeding one input are
// aggregated into a single boolean.
type Logic string

const (
	// LogicAnd requires every connected producer to feed the flow.
	LogicAnd Logic = "and"
	// LogicOr requires at least one connected producer to feed the flow.
	LogicOr Logic = "or"
)

// Valid reports whether l is a known aggregation logic.
func (l Logic) Valid() bool {
	return l == LogicAnd || l == LogicOr
}

// Variable name suffixes. Every flow declared on a component exposes a fixed
// set of boolean variables addressable as "{flow}_{suffix}" in automaton
// guards, effects, indicators and targets.
const (
	// SuffixIn is the aggregated value received from upstream producers.
	SuffixIn = "in"
	// SuffixAvailableIn is the aggregated propagation availability received
	// from upstream producers. True when no edge is connected.
	SuffixAvailableIn = "available_in"
	// SuffixFedIn is the derived input state: in && available_in.
	SuffixFedIn = "fed_in"
	// SuffixProd is the declared or automaton-driven production value.
	SuffixProd = "prod"
	// SuffixProdAvailable gates production; set by automata, defaults true.
	SuffixProdAvailable = "prod_available"
	// SuffixFedOut is the derived output state actually seen downstream.
	SuffixFedOut = "fed_out"
	// SuffixFedAvailableOut gates propagation; set by automata, defaults true.
	SuffixFedAvailableOut = "fed_available_out"
)

// VarName builds the variable name for a flow and suffix, e.g.
// VarName("is_ok", SuffixFedOut) == "is_ok_fed_out".
func VarName(flow, suffix string) string {
	return flow + "_" + suffix
}

// Port name suffixes used by connection declarations.
const (
	portOutSuffix = "_out"
	portInSuffix  = "_in"
	// TriggerSuffix is appended to a flow name to form the trigger input flow
	// wired by System.ConnectTrigger.
	TriggerSuffix = "_trigger"
)

// PortOut returns the output port name of a flow.
func PortOut(flow string) string { return flow + portOutSuffix }

// PortIn returns the input port name of a flow.
func PortIn(flow string) string { return flow + portInSuffix }

// FlowIn declares an input flow on a component.
//
// At runtime the flow carries three variables: "in" (aggregation of upstream
// fed_out values, false when unconnected), "available_in" (aggregation of
// upstream fed_available_out values, true when unconnected) and the derived
// "fed_in" (in && available_in).
type FlowIn struct {
	Name  string `json:"name" yaml:"name"`
	Logic Logic  `json:"logic" yaml:"logic"`

	// Trigger marks this input as a trigger wire. Trigger inputs accept
	// connections from output flows named without the "_trigger" suffix.
	Trigger bool `json:"trigger,omitempty" yaml:"trigger,omitempty"`
}

// FlowOut declares an output flow on a component.
//
// At runtime the flow carries four variables: "prod" (initialised to Default),
// "prod_available" and "fed_available_out" (initialised true, driven by
// automata) and the derived "fed_out".
//
// The derived value is computed as
//
//	eval_prod = prod_available && cond_satisfied && prod
//	fed_out   = eval_prod && fed_available_out
//
// where cond_satisfied evaluates ProdCond. When Negate is set the whole gated
// value is inverted, which turns the output into an alarm-style flow.
type FlowOut struct {
	Name string `json:"name" yaml:"name"`

	// Default is the initial production value.
	Default bool `json:"default,omitempty" yaml:"default,omitempty"`

	// ProdCond restricts production to instants where the referenced input
	// flows are fed. The outer slice is a conjunction, each inner slice a
	// disjunction: every group must contain at least one fed input flow.
	// An empty condition is always satisfied.
	ProdCond [][]string `json:"prod_cond,omitempty" yaml:"prod_cond,omitempty"`

	// Negate inverts the propagated value.
	Negate bool `json:"negate,omitempty" yaml:"negate,omitempty"`
}

// FlowOutOption mutates an output flow declaration.
type FlowOutOption func(*FlowOut)

// ProducesByDefault sets the initial production value to true.
func ProducesByDefault() FlowOutOption {
	return func(f *FlowOut) { f.Default = true }
}

// WithProdCond appends one conjunction group per given flow name: every
// listed input flow must be fed for the output to produce.
func WithProdCond(flows ...string) FlowOutOption {
	return func(f *FlowOut) {
		for _, name := range flows {
			f.ProdCond = append(f.ProdCond, []string{name})
		}
	}
}

// WithProdCondAnyOf appends a single disjunction group: at least one of the
// listed input flows must be fed.
func WithProdCondAnyOf(flows ...string) FlowOutOption {
	return func(f *FlowOut) {
		group := make([]string, len(flows))
		copy(group, flows)
		f.ProdCond = append(f.ProdCond, group)
	}
}

// Negated inverts the propagated value of the flow.
func Negated() FlowOutOption {
	return func(f *FlowOut) { f.Negate = true }
}

// TriggerSpec parameterises a trigger output flow. The flow produces only
// while its trigger automaton is in the "up" state, which is reached TimeUp
// after the trigger input stops being fed and left TimeDown after it is fed
// again.
type TriggerSpec struct {
	// TimeUp is the delay between the trigger input dropping and production
	// starting.
	TimeUp float64 `json:"time_up" yaml:"time_up"`
	// TimeDown is the delay between the trigger input recovering and
	// production stopping.
	TimeDown float64 `json:"time_down" yaml:"time_down"`
	// Logic aggregates the trigger input connections. Defaults to LogicOr.
	Logic Logic `json:"logic,omitempty" yaml:"logic,omitempty"`
}

// TempoSpec parameterises a tempo output flow. The flow produces only while
// its tempo automaton is in the "enabled" state; the automaton follows the
// prod_available variable with the configured laws.
type TempoSpec struct {
	EnableLaw  Law `json:"enable_law" yaml:"enable_law"`
	DisableLaw Law `json:"disable_law" yaml:"disable_law"`
	// InitEnabled starts the flow in the enabled state.
	InitEnabled bool `json:"init_enabled,omitempty" yaml:"init_enabled,omitempty"`
}
