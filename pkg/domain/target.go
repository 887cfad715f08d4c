package domain

// TargetKind selects what a target condition observes.
type TargetKind string

const (
	// TargetVar compares a boolean variable against an expected value.
	TargetVar TargetKind = "var"
	// TargetState compares an automaton's active state against a state name.
	TargetState TargetKind = "state"
)

// Valid reports whether k is a known target kind.
func (k TargetKind) Valid() bool {
	return k == TargetVar || k == TargetState
}

// Comparator relates the observed value to the expected one.
type Comparator string

const (
	// CompEQ stops the run when the observation equals the expected value.
	CompEQ Comparator = "eq"
	// CompNEQ stops the run when the observation differs from it.
	CompNEQ Comparator = "neq"
)

// Valid reports whether c is a known comparator.
func (c Comparator) Valid() bool {
	return c == CompEQ || c == CompNEQ
}

// Target declares an early-stop condition, checked after every transition
// firing and its propagation. When it holds, the run freezes: remaining
// sample points read the frozen state and the run is flagged as having
// reached the target.
type Target struct {
	Name       string     `json:"name" yaml:"name"`
	Kind       TargetKind `json:"kind" yaml:"kind"`
	Comparator Comparator `json:"comparator,omitempty" yaml:"comparator,omitempty"`
	Component  string     `json:"component" yaml:"component"`

	// Var is the observed variable when Kind is TargetVar.
	Var string `json:"var,omitempty" yaml:"var,omitempty"`
	// Value is the expected variable value when Kind is TargetVar.
	Value bool `json:"value,omitempty" yaml:"value,omitempty"`

	// Automaton and State identify the expected active state when Kind is
	// TargetState.
	Automaton string `json:"automaton,omitempty" yaml:"automaton,omitempty"`
	State     string `json:"state,omitempty" yaml:"state,omitempty"`
}

// NewVarTarget declares a stop condition on a boolean variable.
func NewVarTarget(name, component, variable string, value bool) *Target {
	return &Target{
		Name:       name,
		Kind:       TargetVar,
		Comparator: CompEQ,
		Component:  component,
		Var:        variable,
		Value:      value,
	}
}

// NewStateTarget declares a stop condition on an automaton state.
func NewStateTarget(name, component, automaton, state string) *Target {
	return &Target{
		Name:       name,
		Kind:       TargetState,
		Comparator: CompEQ,
		Component:  component,
		Automaton:  automaton,
		State:      state,
	}
}
