package domain

// CondKind discriminates guard condition variants.
type CondKind string

const (
	// CondConst is a constant guard.
	CondConst CondKind = "const"
	// CondVar reads a boolean variable of the owning component.
	CondVar CondKind = "var"
)

// Cond is a transition guard: either a constant or a (possibly negated)
// reference to a variable of the owning component. The zero value behaves as
// a constant true guard.
type Cond struct {
	Kind   CondKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Value  bool     `json:"value,omitempty" yaml:"value,omitempty"`
	Var    string   `json:"var,omitempty" yaml:"var,omitempty"`
	Negate bool     `json:"negate,omitempty" yaml:"negate,omitempty"`
}

// ConstCond returns a constant guard.
func ConstCond(v bool) Cond {
	return Cond{Kind: CondConst, Value: v}
}

// VarCond returns a guard that is true while the named variable is true.
func VarCond(name string) Cond {
	return Cond{Kind: CondVar, Var: name}
}

// NotVarCond returns a guard that is true while the named variable is false.
func NotVarCond(name string) Cond {
	return Cond{Kind: CondVar, Var: name, Negate: true}
}

// Validate checks the guard shape. The zero value is valid.
func (c Cond) Validate() error {
	switch c.Kind {
	case "", CondConst:
		return nil
	case CondVar:
		if c.Var == "" {
			return NewConfigError("cond", "variable guard without a variable name")
		}
		return nil
	default:
		return NewConfigError("cond", "unknown kind %q", string(c.Kind))
	}
}

// IsConst reports whether the guard is constant, and its value. The zero
// value is a constant true.
func (c Cond) IsConst() (value, ok bool) {
	switch c.Kind {
	case "":
		return true, true
	case CondConst:
		return c.Value, true
	default:
		return false, false
	}
}

// LawKind discriminates occurrence law variants.
type LawKind string

const (
	// LawDelay fires after a fixed delay.
	LawDelay LawKind = "delay"
	// LawExp fires after an exponentially distributed delay.
	LawExp LawKind = "exp"
)

// Law is the occurrence law of a transition: the distribution of the delay
// between the guard becoming true and the transition firing.
//
// A delay law always yields exactly its fixed duration. An exponential law
// draws an independent delay per arming instance; a rate of zero means the
// transition never fires.
type Law struct {
	Kind  LawKind `json:"kind" yaml:"kind"`
	Delay float64 `json:"delay,omitempty" yaml:"delay,omitempty"`
	Rate  float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
}

// DelayLaw returns a deterministic occurrence law.
func DelayLaw(d float64) Law {
	return Law{Kind: LawDelay, Delay: d}
}

// ExpLaw returns an exponential occurrence law.
func ExpLaw(rate float64) Law {
	return Law{Kind: LawExp, Rate: rate}
}

// Validate checks the law parameters. A rate of zero is legal and means the
// transition never fires.
func (l Law) Validate() error {
	switch l.Kind {
	case LawDelay:
		if l.Delay < 0 {
			return NewConfigError("law", "negative delay %g", l.Delay)
		}
		return nil
	case LawExp:
		if l.Rate < 0 {
			return NewConfigError("law", "negative rate %g", l.Rate)
		}
		return nil
	default:
		return NewConfigError("law", "unknown kind %q", string(l.Kind))
	}
}

// Effect is a variable assignment applied atomically when a transition fires.
//
// Component and Var are anchored regular expressions expanded once at build
// time; an empty Component targets the owning component. Var must match at
// least one settable variable (prod, prod_available or fed_available_out) of
// every targeted component.
type Effect struct {
	Component string `json:"component,omitempty" yaml:"component,omitempty"`
	Var       string `json:"var" yaml:"var"`
	Value     bool   `json:"value" yaml:"value"`
}

// Transition is a directed, condition-gated edge between two automaton
// states.
//
// While the automaton is in the source state and the guard holds, one event
// is pending at now + draw(Law). Interruptible transitions cancel the pending
// event when the guard drops; non-interruptible ones fire regardless. At most
// one event is pending per transition at any time.
type Transition struct {
	Name          string   `json:"name" yaml:"name"`
	From          string   `json:"from" yaml:"from"`
	To            string   `json:"to" yaml:"to"`
	Cond          Cond     `json:"cond,omitempty" yaml:"cond,omitempty"`
	Law           Law      `json:"law" yaml:"law"`
	Interruptible bool     `json:"interruptible,omitempty" yaml:"interruptible,omitempty"`
	Effects       []Effect `json:"effects,omitempty" yaml:"effects,omitempty"`
}

// Automaton is a finite-state stochastic or deterministic process attached to
// one component. The first declared state is the initial state.
type Automaton struct {
	Name        string       `json:"name" yaml:"name"`
	States      []string     `json:"states" yaml:"states"`
	Transitions []Transition `json:"transitions" yaml:"transitions"`
}

// Initial returns the initial state name, or "" for an empty automaton.
func (a *Automaton) Initial() string {
	if len(a.States) == 0 {
		return ""
	}
	return a.States[0]
}

// HasState reports whether the automaton declares the named state.
func (a *Automaton) HasState(name string) bool {
	for _, s := range a.States {
		if s == name {
			return true
		}
	}
	return false
}

// TwoStateSpec declares the canonical two-state automaton shape used by
// failure modes and similar processes. StateA is the initial state unless
// InitB is set.
type TwoStateSpec struct {
	Name   string
	StateA string // defaults to "absent"
	StateB string // defaults to "present"
	InitB  bool

	CondAB          Cond
	LawAB           Law
	InterruptibleAB bool
	EffectsAB       []Effect

	CondBA          Cond
	LawBA           Law
	InterruptibleBA bool
	EffectsBA       []Effect
}

// TransitionID is the fully qualified identifier of a transition:
// "component.automaton.transition".
func TransitionID(component, automaton, transition string) string {
	return component + "." + automaton + "." + transition
}

// TransitionRef identifies a pending or fired transition during a run.
type TransitionRef struct {
	Component  string  `json:"component" yaml:"component"`
	Automaton  string  `json:"automaton" yaml:"automaton"`
	Transition string  `json:"transition" yaml:"transition"`
	From       string  `json:"from" yaml:"from"`
	To         string  `json:"to" yaml:"to"`
	Time       float64 `json:"time" yaml:"time"`
}

// ID returns the fully qualified transition identifier.
func (r TransitionRef) ID() string {
	return TransitionID(r.Component, r.Automaton, r.Transition)
}

// FiredTransition records one transition firing in a run's sequence log.
type FiredTransition struct {
	Time       float64 `json:"time" yaml:"time"`
	Component  string  `json:"component" yaml:"component"`
	Automaton  string  `json:"automaton" yaml:"automaton"`
	Transition string  `json:"transition" yaml:"transition"`
	From       string  `json:"from" yaml:"from"`
	To         string  `json:"to" yaml:"to"`
}

// ID returns the fully qualified transition identifier.
func (f FiredTransition) ID() string {
	return TransitionID(f.Component, f.Automaton, f.Transition)
}
