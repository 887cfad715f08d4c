package domain

import "strings"

// PortDir is the direction of a component port.
type PortDir string

const (
	// PortDirIn marks a consumer port ("{flow}_in").
	PortDirIn PortDir = "in"
	// PortDirOut marks a producer port ("{flow}_out").
	PortDirOut PortDir = "out"
)

// Component is a named model element: a set of input and output flow
// declarations plus the automata that drive them. Components are inert
// declarations; the engine compiles a System of them into executable runs.
type Component struct {
	Name     string       `json:"name" yaml:"name"`
	Class    string       `json:"class,omitempty" yaml:"class,omitempty"`
	FlowsIn  []FlowIn     `json:"flows_in,omitempty" yaml:"flows_in,omitempty"`
	FlowsOut []FlowOut    `json:"flows_out,omitempty" yaml:"flows_out,omitempty"`
	Automata []*Automaton `json:"automata,omitempty" yaml:"automata,omitempty"`
}

// NewComponent returns an empty component declaration.
func NewComponent(name string) *Component {
	return &Component{Name: name}
}

// FlowInByName returns the input flow declaration with the given name.
func (c *Component) FlowInByName(name string) (*FlowIn, bool) {
	for i := range c.FlowsIn {
		if c.FlowsIn[i].Name == name {
			return &c.FlowsIn[i], true
		}
	}
	return nil, false
}

// FlowOutByName returns the output flow declaration with the given name.
func (c *Component) FlowOutByName(name string) (*FlowOut, bool) {
	for i := range c.FlowsOut {
		if c.FlowsOut[i].Name == name {
			return &c.FlowsOut[i], true
		}
	}
	return nil, false
}

// AutomatonByName returns the automaton with the given name.
func (c *Component) AutomatonByName(name string) (*Automaton, bool) {
	for _, a := range c.Automata {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// DeclareFlowIn adds an input flow. An empty logic defaults to LogicOr.
func (c *Component) DeclareFlowIn(name string, logic Logic) error {
	return c.declareFlowIn(FlowIn{Name: name, Logic: logic})
}

func (c *Component) declareFlowIn(f FlowIn) error {
	if f.Name == "" {
		return NewConfigError("flow", "component %q: input flow name is empty", c.Name)
	}
	if f.Logic == "" {
		f.Logic = LogicOr
	}
	if !f.Logic.Valid() {
		return NewConfigError("flow", "component %q: input flow %q: unknown logic %q", c.Name, f.Name, string(f.Logic))
	}
	if _, ok := c.FlowInByName(f.Name); ok {
		return NewConfigError("flow", "component %q: input flow %q already declared", c.Name, f.Name)
	}
	c.FlowsIn = append(c.FlowsIn, f)
	return nil
}

// DeclareFlowOut adds an output flow.
func (c *Component) DeclareFlowOut(name string, opts ...FlowOutOption) error {
	if name == "" {
		return NewConfigError("flow", "component %q: output flow name is empty", c.Name)
	}
	if _, ok := c.FlowOutByName(name); ok {
		return NewConfigError("flow", "component %q: output flow %q already declared", c.Name, name)
	}
	f := FlowOut{Name: name}
	for _, opt := range opts {
		opt(&f)
	}
	c.FlowsOut = append(c.FlowsOut, f)
	return nil
}

// DeclareFlowInOut adds a pass-through pair: an input flow and an output flow
// sharing the same name, where the output produces while the input is fed.
func (c *Component) DeclareFlowInOut(name string, logic Logic, opts ...FlowOutOption) error {
	if err := c.DeclareFlowIn(name, logic); err != nil {
		return err
	}
	outOpts := append([]FlowOutOption{ProducesByDefault(), WithProdCond(name)}, opts...)
	return c.DeclareFlowOut(name, outOpts...)
}

// DeclareTriggerOut adds an output flow driven by a trigger automaton, plus
// the trigger input flow "{name}_trigger" that System.ConnectTrigger wires.
//
// The automaton starts down. It moves to up, setting prod, TimeUp after the
// trigger input stops being fed; it moves back down, clearing prod, TimeDown
// after the input is fed again. Both transitions cancel when their guard
// drops before the delay elapses.
func (c *Component) DeclareTriggerOut(name string, spec TriggerSpec, opts ...FlowOutOption) error {
	if spec.TimeUp < 0 || spec.TimeDown < 0 {
		return NewConfigError("trigger", "component %q: flow %q: negative trigger delay", c.Name, name)
	}
	logic := spec.Logic
	if logic == "" {
		logic = LogicOr
	}
	if err := c.declareFlowIn(FlowIn{Name: name + TriggerSuffix, Logic: logic, Trigger: true}); err != nil {
		return err
	}
	if err := c.DeclareFlowOut(name, opts...); err != nil {
		return err
	}
	fedIn := VarName(name+TriggerSuffix, SuffixFedIn)
	prod := VarName(name, SuffixProd)
	return c.AddAutomaton(&Automaton{
		Name:   name + TriggerSuffix,
		States: []string{"down", "up"},
		Transitions: []Transition{
			{
				Name:          name + TriggerSuffix + "_up",
				From:          "down",
				To:            "up",
				Cond:          NotVarCond(fedIn),
				Law:           DelayLaw(spec.TimeUp),
				Interruptible: true,
				Effects:       []Effect{{Var: prod, Value: true}},
			},
			{
				Name:          name + TriggerSuffix + "_down",
				From:          "up",
				To:            "down",
				Cond:          VarCond(fedIn),
				Law:           DelayLaw(spec.TimeDown),
				Interruptible: true,
				Effects:       []Effect{{Var: prod, Value: false}},
			},
		},
	})
}

// DeclareTempoOut adds an output flow driven by an enable/disable automaton
// following the flow's prod_available variable.
//
// Production starts only after prod_available has held for the enable delay
// and stops only after it has been down for the disable delay; a flip back
// within either window cancels the pending change.
func (c *Component) DeclareTempoOut(name string, spec TempoSpec, opts ...FlowOutOption) error {
	outOpts := opts
	if spec.InitEnabled {
		outOpts = append([]FlowOutOption{ProducesByDefault()}, opts...)
	}
	if err := c.DeclareFlowOut(name, outOpts...); err != nil {
		return err
	}
	states := []string{"disabled", "enabled"}
	if spec.InitEnabled {
		states = []string{"enabled", "disabled"}
	}
	prodAvailable := VarName(name, SuffixProdAvailable)
	prod := VarName(name, SuffixProd)
	return c.AddAutomaton(&Automaton{
		Name:   name + "_out_tempo",
		States: states,
		Transitions: []Transition{
			{
				Name:          name + "_enable",
				From:          "disabled",
				To:            "enabled",
				Cond:          VarCond(prodAvailable),
				Law:           normalizeLaw(spec.EnableLaw),
				Interruptible: true,
				Effects:       []Effect{{Var: prod, Value: true}},
			},
			{
				Name:          name + "_disable",
				From:          "enabled",
				To:            "disabled",
				Cond:          NotVarCond(prodAvailable),
				Law:           normalizeLaw(spec.DisableLaw),
				Interruptible: true,
				Effects:       []Effect{{Var: prod, Value: false}},
			},
		},
	})
}

// AddAutomaton registers a fully built automaton after validating its shape.
// Effect targets are expanded and checked later, at system build time, since
// they may reference flows or components declared afterwards.
func (c *Component) AddAutomaton(a *Automaton) error {
	if a == nil || a.Name == "" {
		return NewConfigError("automaton", "component %q: automaton name is empty", c.Name)
	}
	if _, ok := c.AutomatonByName(a.Name); ok {
		return NewConfigError("automaton", "component %q: automaton %q already declared", c.Name, a.Name)
	}
	if len(a.States) == 0 {
		return NewConfigError("automaton", "component %q: automaton %q has no states", c.Name, a.Name)
	}
	seen := make(map[string]bool, len(a.States))
	for _, st := range a.States {
		if st == "" {
			return NewConfigError("automaton", "component %q: automaton %q: empty state name", c.Name, a.Name)
		}
		if seen[st] {
			return NewConfigError("automaton", "component %q: automaton %q: state %q declared twice", c.Name, a.Name, st)
		}
		seen[st] = true
	}
	names := make(map[string]bool, len(a.Transitions))
	for i := range a.Transitions {
		t := &a.Transitions[i]
		if t.Name == "" {
			return NewConfigError("automaton", "component %q: automaton %q: transition name is empty", c.Name, a.Name)
		}
		if names[t.Name] {
			return NewConfigError("automaton", "component %q: automaton %q: transition %q declared twice", c.Name, a.Name, t.Name)
		}
		names[t.Name] = true
		if !seen[t.From] {
			return NewConfigError("automaton", "component %q: transition %q: unknown source state %q", c.Name, t.Name, t.From)
		}
		if !seen[t.To] {
			return NewConfigError("automaton", "component %q: transition %q: unknown target state %q", c.Name, t.Name, t.To)
		}
		if err := t.Cond.Validate(); err != nil {
			return NewConfigError("automaton", "component %q: transition %q: %v", c.Name, t.Name, err)
		}
		if err := t.Law.Validate(); err != nil {
			return NewConfigError("automaton", "component %q: transition %q: %v", c.Name, t.Name, err)
		}
		for _, eff := range t.Effects {
			if eff.Var == "" {
				return NewConfigError("automaton", "component %q: transition %q: effect without a variable", c.Name, t.Name)
			}
		}
	}
	c.Automata = append(c.Automata, a)
	return nil
}

// AddAutomaton2States builds the canonical two-state automaton shape: states
// "{name}_{stateA}" and "{name}_{stateB}" with transitions
// "{name}_{stateA}_{stateB}" and back.
func (c *Component) AddAutomaton2States(spec TwoStateSpec) error {
	if spec.Name == "" {
		return NewConfigError("automaton", "component %q: automaton name is empty", c.Name)
	}
	stA := spec.StateA
	if stA == "" {
		stA = "absent"
	}
	stB := spec.StateB
	if stB == "" {
		stB = "present"
	}
	nameA := spec.Name + "_" + stA
	nameB := spec.Name + "_" + stB
	states := []string{nameA, nameB}
	if spec.InitB {
		states = []string{nameB, nameA}
	}
	return c.AddAutomaton(&Automaton{
		Name:   spec.Name,
		States: states,
		Transitions: []Transition{
			{
				Name:          spec.Name + "_" + stA + "_" + stB,
				From:          nameA,
				To:            nameB,
				Cond:          spec.CondAB,
				Law:           normalizeLaw(spec.LawAB),
				Interruptible: spec.InterruptibleAB,
				Effects:       spec.EffectsAB,
			},
			{
				Name:          spec.Name + "_" + stB + "_" + stA,
				From:          nameB,
				To:            nameA,
				Cond:          spec.CondBA,
				Law:           normalizeLaw(spec.LawBA),
				Interruptible: spec.InterruptibleBA,
				Effects:       spec.EffectsBA,
			},
		},
	})
}

// AddDelayFailureMode adds a failure/repair automaton with fixed delays:
// states "{name}_rep" (initial) and "{name}_occ". While cond holds the
// failure fires failureTime after arming, forcing every variable matching the
// effect patterns to false; the repair fires repairTime later and restores
// them to true.
func (c *Component) AddDelayFailureMode(name string, cond Cond, failureTime float64, effects []string, repairTime float64) error {
	fail, rep := failureEffects(effects)
	return c.AddAutomaton2States(TwoStateSpec{
		Name:            name,
		StateA:          "rep",
		StateB:          "occ",
		CondAB:          cond,
		LawAB:           DelayLaw(failureTime),
		InterruptibleAB: true,
		EffectsAB:       fail,
		LawBA:           DelayLaw(repairTime),
		InterruptibleBA: true,
		EffectsBA:       rep,
	})
}

// AddExpFailureMode adds a failure/repair automaton with exponential laws:
// states "{name}_rep" (initial) and "{name}_occ". Delays are drawn with the
// given rates; a rate of zero disables the transition.
func (c *Component) AddExpFailureMode(name string, cond Cond, failureRate float64, effects []string, repairRate float64) error {
	fail, rep := failureEffects(effects)
	return c.AddAutomaton2States(TwoStateSpec{
		Name:            name,
		StateA:          "rep",
		StateB:          "occ",
		CondAB:          cond,
		LawAB:           ExpLaw(failureRate),
		InterruptibleAB: true,
		EffectsAB:       fail,
		LawBA:           ExpLaw(repairRate),
		InterruptibleBA: true,
		EffectsBA:       rep,
	})
}

// failureEffects expands variable patterns into paired failure and repair
// assignments: forced false on failure, restored true on repair.
func failureEffects(patterns []string) (fail, rep []Effect) {
	for _, pat := range patterns {
		fail = append(fail, Effect{Var: pat, Value: false})
		rep = append(rep, Effect{Var: pat, Value: true})
	}
	return fail, rep
}

func normalizeLaw(l Law) Law {
	if l.Kind == "" {
		return DelayLaw(0)
	}
	return l
}

// ResolvePort maps a port name ("{flow}_out" or "{flow}_in") to the flow it
// belongs to.
func (c *Component) ResolvePort(port string) (flow string, dir PortDir, err error) {
	if base, ok := strings.CutSuffix(port, portOutSuffix); ok {
		if _, found := c.FlowOutByName(base); found {
			return base, PortDirOut, nil
		}
	}
	if base, ok := strings.CutSuffix(port, portInSuffix); ok {
		if _, found := c.FlowInByName(base); found {
			return base, PortDirIn, nil
		}
	}
	return "", "", newUnknownPortError(c.Name, port)
}

// VarNames lists every variable of the component in declaration order:
// input flows first, then output flows.
func (c *Component) VarNames() []string {
	names := make([]string, 0, 3*len(c.FlowsIn)+4*len(c.FlowsOut))
	for i := range c.FlowsIn {
		f := c.FlowsIn[i].Name
		names = append(names,
			VarName(f, SuffixIn),
			VarName(f, SuffixAvailableIn),
			VarName(f, SuffixFedIn),
		)
	}
	for i := range c.FlowsOut {
		f := c.FlowsOut[i].Name
		names = append(names,
			VarName(f, SuffixProd),
			VarName(f, SuffixProdAvailable),
			VarName(f, SuffixFedOut),
			VarName(f, SuffixFedAvailableOut),
		)
	}
	return names
}

// Variables builds a fresh variable set with the component's declared
// defaults: inputs unconnected (in=false, available_in=true), production per
// the flow's Default, both availability flags true.
func (c *Component) Variables() (*VariableSet, error) {
	vs := NewVariableSet()
	for i := range c.FlowsIn {
		f := c.FlowsIn[i].Name
		if err := vs.Declare(VarName(f, SuffixIn), false); err != nil {
			return nil, err
		}
		if err := vs.Declare(VarName(f, SuffixAvailableIn), true); err != nil {
			return nil, err
		}
		if err := vs.Declare(VarName(f, SuffixFedIn), false); err != nil {
			return nil, err
		}
	}
	for i := range c.FlowsOut {
		f := &c.FlowsOut[i]
		if err := vs.Declare(VarName(f.Name, SuffixProd), f.Default); err != nil {
			return nil, err
		}
		if err := vs.Declare(VarName(f.Name, SuffixProdAvailable), true); err != nil {
			return nil, err
		}
		if err := vs.Declare(VarName(f.Name, SuffixFedOut), false); err != nil {
			return nil, err
		}
		if err := vs.Declare(VarName(f.Name, SuffixFedAvailableOut), true); err != nil {
			return nil, err
		}
	}
	return vs, nil
}

// SettableVar reports whether the named variable may be assigned by an
// automaton effect. Only prod, prod_available and fed_available_out of a
// declared output flow qualify; every other variable is derived by
// propagation.
func (c *Component) SettableVar(name string) bool {
	for i := range c.FlowsOut {
		f := c.FlowsOut[i].Name
		switch name {
		case VarName(f, SuffixProd), VarName(f, SuffixProdAvailable), VarName(f, SuffixFedAvailableOut):
			return true
		}
	}
	return false
}
