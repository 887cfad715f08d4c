package domain

import (
	"regexp"
	"strings"
)

// GateFlowName is the output flow name of components created by AddLogicOr
// and AddLogicAnd.
const GateFlowName = "flow"

// CompileAnchored compiles a selector pattern anchored to the full string.
// Every pattern in a model (auto-connect, indicators, monitors, effect
// targets) is matched this way.
func CompileAnchored(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")$")
}

// Connection is a directed edge carrying one flow from a producer output to a
// consumer input. SrcFlow and DstFlow differ only on trigger edges, where the
// consumer side carries the "_trigger" suffix.
type Connection struct {
	Src     string `json:"src" yaml:"src"`
	SrcFlow string `json:"src_flow" yaml:"src_flow"`
	Dst     string `json:"dst" yaml:"dst"`
	DstFlow string `json:"dst_flow" yaml:"dst_flow"`
}

// System is a complete model declaration: components, the connections between
// their flows, observation indicators, stop targets and transition monitors.
// A System is inert data; the engine compiles it into executable runs.
type System struct {
	Name        string       `json:"name" yaml:"name"`
	Components  []*Component `json:"components,omitempty" yaml:"components,omitempty"`
	Connections []Connection `json:"connections,omitempty" yaml:"connections,omitempty"`
	Indicators  []*Indicator `json:"indicators,omitempty" yaml:"indicators,omitempty"`
	Targets     []*Target    `json:"targets,omitempty" yaml:"targets,omitempty"`
	Monitors    []string     `json:"monitors,omitempty" yaml:"monitors,omitempty"`

	byName map[string]*Component
}

// NewSystem returns an empty system.
func NewSystem(name string) *System {
	return &System{Name: name, byName: make(map[string]*Component)}
}

func (s *System) reindex() {
	s.byName = make(map[string]*Component, len(s.Components))
	for _, c := range s.Components {
		s.byName[c.Name] = c
	}
}

// AddComponent registers a component declaration.
func (s *System) AddComponent(c *Component) error {
	if c == nil || c.Name == "" {
		return NewConfigError("component", "component name is empty")
	}
	if s.byName == nil {
		s.reindex()
	}
	if _, ok := s.byName[c.Name]; ok {
		return NewConfigError("component", "component %q already declared", c.Name)
	}
	s.Components = append(s.Components, c)
	s.byName[c.Name] = c
	return nil
}

// Component returns the named component declaration.
func (s *System) Component(name string) (*Component, bool) {
	if s.byName == nil {
		s.reindex()
	}
	c, ok := s.byName[name]
	return c, ok
}

// Connect wires a producer output port to a consumer input port. Ports are
// named "{flow}_out" and "{flow}_in"; the flow name must agree on both ends,
// except for trigger inputs which accept the un-suffixed source flow.
// Connecting the same edge twice is an error; use ConnectFlow or AutoConnect
// for idempotent wiring.
func (s *System) Connect(src, srcPort, dst, dstPort string) error {
	conn, err := s.resolveConnection(src, srcPort, dst, dstPort)
	if err != nil {
		return err
	}
	if s.hasConnection(conn) {
		return NewConfigError("connect", "%s.%s -> %s.%s already connected", src, srcPort, dst, dstPort)
	}
	s.Connections = append(s.Connections, conn)
	return nil
}

// ConnectFlow connects "{flow}_out" of src to "{flow}_in" of dst, skipping
// silently when the edge already exists. It reports whether a new edge was
// created.
func (s *System) ConnectFlow(src, dst, flow string) (bool, error) {
	conn, err := s.resolveConnection(src, PortOut(flow), dst, PortIn(flow))
	if err != nil {
		return false, err
	}
	if s.hasConnection(conn) {
		return false, nil
	}
	s.Connections = append(s.Connections, conn)
	return true, nil
}

// ConnectTrigger wires the output flow of a primary producer to the trigger
// input of a triggered producer: "{flow}_out" of src to "{flow}_trigger_in"
// of dst. Existing edges are skipped.
func (s *System) ConnectTrigger(src, dst, flow string) error {
	conn, err := s.resolveConnection(src, PortOut(flow), dst, PortIn(flow+TriggerSuffix))
	if err != nil {
		return err
	}
	if s.hasConnection(conn) {
		return nil
	}
	s.Connections = append(s.Connections, conn)
	return nil
}

func (s *System) resolveConnection(src, srcPort, dst, dstPort string) (Connection, error) {
	var zero Connection
	if src == dst {
		return zero, NewConfigError("connect", "cannot connect component %q to itself", src)
	}
	srcComp, ok := s.Component(src)
	if !ok {
		return zero, NewConfigError("connect", "unknown component %q", src)
	}
	dstComp, ok := s.Component(dst)
	if !ok {
		return zero, NewConfigError("connect", "unknown component %q", dst)
	}
	srcFlow, srcDir, err := srcComp.ResolvePort(srcPort)
	if err != nil {
		return zero, NewConfigError("connect", "%v", err)
	}
	if srcDir != PortDirOut {
		return zero, NewConfigError("connect", "port %q of %q is not an output", srcPort, src)
	}
	dstFlow, dstDir, err := dstComp.ResolvePort(dstPort)
	if err != nil {
		return zero, NewConfigError("connect", "%v", err)
	}
	if dstDir != PortDirIn {
		return zero, NewConfigError("connect", "port %q of %q is not an input", dstPort, dst)
	}
	dstIn, _ := dstComp.FlowInByName(dstFlow)
	if srcFlow != dstFlow && !(dstIn.Trigger && dstFlow == srcFlow+TriggerSuffix) {
		return zero, NewConfigError("connect", "flow mismatch: %q of %q cannot feed %q of %q", srcFlow, src, dstFlow, dst)
	}
	return Connection{Src: src, SrcFlow: srcFlow, Dst: dst, DstFlow: dstFlow}, nil
}

func (s *System) hasConnection(conn Connection) bool {
	for _, c := range s.Connections {
		if c == conn {
			return true
		}
	}
	return false
}

// AutoConnect connects every output flow of components matching srcPattern to
// the same-named input flow of components matching dstPattern. Patterns are
// anchored regular expressions. Self connections, trigger inputs and existing
// edges are skipped. The created connections are returned.
func (s *System) AutoConnect(srcPattern, dstPattern string) ([]Connection, error) {
	srcRe, err := CompileAnchored(srcPattern)
	if err != nil {
		return nil, NewConfigError("auto_connect", "source pattern %q: %v", srcPattern, err)
	}
	dstRe, err := CompileAnchored(dstPattern)
	if err != nil {
		return nil, NewConfigError("auto_connect", "target pattern %q: %v", dstPattern, err)
	}
	var created []Connection
	for _, src := range s.Components {
		if !srcRe.MatchString(src.Name) {
			continue
		}
		for _, dst := range s.Components {
			if dst.Name == src.Name || !dstRe.MatchString(dst.Name) {
				continue
			}
			for i := range src.FlowsOut {
				flow := src.FlowsOut[i].Name
				in, ok := dst.FlowInByName(flow)
				if !ok || in.Trigger {
					continue
				}
				conn := Connection{Src: src.Name, SrcFlow: flow, Dst: dst.Name, DstFlow: flow}
				if s.hasConnection(conn) {
					continue
				}
				s.Connections = append(s.Connections, conn)
				created = append(created, conn)
			}
		}
	}
	return created, nil
}

// AddLogicOr creates an aggregation component named name whose output flow
// "flow" produces while, for every collected input flow, at least one
// connected producer feeds it. Matching producers are connected
// automatically.
//
// Each input spec selects producers: "componentPattern" or
// "componentPattern:flowPattern", both anchored. Every output flow of every
// matched component whose name matches the flow pattern becomes an input flow
// of the gate.
func (s *System) AddLogicOr(name string, inputs []string) (*Component, error) {
	return s.addLogicGate(name, inputs, LogicOr, "LogicOr")
}

// AddLogicAnd is AddLogicOr with AND aggregation: every connected producer of
// every collected input flow must feed it.
func (s *System) AddLogicAnd(name string, inputs []string) (*Component, error) {
	return s.addLogicGate(name, inputs, LogicAnd, "LogicAnd")
}

func (s *System) addLogicGate(name string, inputSpecs []string, logic Logic, class string) (*Component, error) {
	type match struct {
		comp string
		flow string
	}
	var (
		flows   []string
		seen    = make(map[string]bool)
		matches []match
	)
	for _, spec := range inputSpecs {
		compPat, flowPat := spec, ".*"
		if i := strings.IndexByte(spec, ':'); i >= 0 {
			compPat, flowPat = spec[:i], spec[i+1:]
		}
		compRe, err := CompileAnchored(compPat)
		if err != nil {
			return nil, NewConfigError("logic", "component pattern %q: %v", compPat, err)
		}
		flowRe, err := CompileAnchored(flowPat)
		if err != nil {
			return nil, NewConfigError("logic", "flow pattern %q: %v", flowPat, err)
		}
		for _, c := range s.Components {
			if !compRe.MatchString(c.Name) {
				continue
			}
			for i := range c.FlowsOut {
				flow := c.FlowsOut[i].Name
				if !flowRe.MatchString(flow) {
					continue
				}
				if !seen[flow] {
					seen[flow] = true
					flows = append(flows, flow)
				}
				matches = append(matches, match{comp: c.Name, flow: flow})
			}
		}
	}
	if len(flows) == 0 {
		return nil, NewConfigError("logic", "gate %q: no input flows matched", name)
	}
	gate := NewComponent(name)
	gate.Class = class
	for _, flow := range flows {
		if err := gate.DeclareFlowIn(flow, logic); err != nil {
			return nil, err
		}
	}
	if err := gate.DeclareFlowOut(GateFlowName, ProducesByDefault(), WithProdCond(flows...)); err != nil {
		return nil, err
	}
	if err := s.AddComponent(gate); err != nil {
		return nil, err
	}
	for _, m := range matches {
		if _, err := s.ConnectFlow(m.comp, name, m.flow); err != nil {
			return nil, err
		}
	}
	return gate, nil
}

// AddIndicator declares an observation of one variable across matching
// components. The selector is an anchored component pattern; SelectAll
// matches every component exposing the variable. Stats defaults to the mean.
func (s *System) AddIndicator(name, selector, variable string, stats ...Stat) error {
	if name == "" {
		return NewConfigError("indicator", "indicator name is empty")
	}
	for _, ind := range s.Indicators {
		if ind.Name == name {
			return NewConfigError("indicator", "indicator %q already declared", name)
		}
	}
	if variable == "" {
		return NewConfigError("indicator", "indicator %q: variable name is empty", name)
	}
	if selector == "" {
		return NewConfigError("indicator", "indicator %q: component selector is empty", name)
	}
	if selector != SelectAll {
		if _, err := CompileAnchored(selector); err != nil {
			return NewConfigError("indicator", "indicator %q: selector %q: %v", name, selector, err)
		}
	}
	for _, st := range stats {
		if !st.Valid() {
			return NewConfigError("indicator", "indicator %q: unknown stat %q", name, string(st))
		}
	}
	if len(stats) == 0 {
		stats = []Stat{StatMean}
	}
	s.Indicators = append(s.Indicators, &Indicator{
		Name:     name,
		Selector: selector,
		Var:      variable,
		Stats:    stats,
	})
	return nil
}

// AddTarget declares an early-stop condition. Component, variable and state
// references are resolved at build time.
func (s *System) AddTarget(t *Target) error {
	if t == nil || t.Name == "" {
		return NewConfigError("target", "target name is empty")
	}
	for _, other := range s.Targets {
		if other.Name == t.Name {
			return NewConfigError("target", "target %q already declared", t.Name)
		}
	}
	if t.Kind == "" {
		t.Kind = TargetVar
	}
	if t.Comparator == "" {
		t.Comparator = CompEQ
	}
	if !t.Kind.Valid() {
		return NewConfigError("target", "target %q: unknown kind %q", t.Name, string(t.Kind))
	}
	if !t.Comparator.Valid() {
		return NewConfigError("target", "target %q: unknown comparator %q", t.Name, string(t.Comparator))
	}
	if t.Component == "" {
		return NewConfigError("target", "target %q: component is empty", t.Name)
	}
	switch t.Kind {
	case TargetVar:
		if t.Var == "" {
			return NewConfigError("target", "target %q: variable is empty", t.Name)
		}
	case TargetState:
		if t.Automaton == "" || t.State == "" {
			return NewConfigError("target", "target %q: automaton and state are required", t.Name)
		}
	}
	s.Targets = append(s.Targets, t)
	return nil
}

// MonitorTransitions records every automaton transition whose qualified
// identifier "component.automaton.transition" matches one of the anchored
// patterns, for post-run sequence export.
func (s *System) MonitorTransitions(patterns ...string) error {
	for _, pat := range patterns {
		if _, err := CompileAnchored(pat); err != nil {
			return NewConfigError("monitor", "pattern %q: %v", pat, err)
		}
		s.Monitors = append(s.Monitors, pat)
	}
	return nil
}
