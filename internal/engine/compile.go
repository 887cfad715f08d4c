package engine

import (
	"regexp"
	"sort"

	"github.com/aretw0/sluice/pkg/domain"
)

// Model is a compiled system: resolved effect targets, checked references,
// the propagation order and the observation bindings. It is immutable and
// shared read-only by every run.
type Model struct {
	System *domain.System

	comps  []compiledComponent
	byName map[string]int

	automata []compiledAutomaton

	order     []propNode
	maxPasses int

	indicators []IndicatorBinding
	targets    []compiledTarget
	monitors   []*regexp.Regexp
}

type compiledComponent struct {
	comp *domain.Component
	// inputs maps each in-flow name to its upstream producer edges.
	inputs map[string][]edge
}

type edge struct {
	comp int
	flow string
}

type compiledAutomaton struct {
	owner int
	atm   *domain.Automaton
	trans []compiledTransition
}

type compiledTransition struct {
	tr      *domain.Transition
	from    int
	to      int
	effects []assignment
}

// assignment is one concrete effect target, expanded from its patterns.
type assignment struct {
	comp  int
	vname string
	value bool
}

// propNode is one step of the propagation sweep: either the input
// aggregation of (comp, flow) or the output production of (comp, flow).
type propNode struct {
	comp int
	flow string
	out  bool
}

type compiledTarget struct {
	t    *domain.Target
	comp int
	// atm is the global automaton index for state targets, -1 otherwise.
	atm int
}

// IndicatorBinding is an indicator resolved to its concrete series.
type IndicatorBinding struct {
	Indicator domain.Indicator
	Pairs     []IndicatorPair
}

// IndicatorPair is one (component, variable) series of an indicator.
type IndicatorPair struct {
	Component string
	Var       string
	Key       string
}

// Compile resolves a system into a runtime model. All regex expansion,
// reference checking and ordering happens here so runs execute straight-line
// lookups only.
func Compile(sys *domain.System) (*Model, error) {
	if sys == nil || len(sys.Components) == 0 {
		return nil, domain.NewConfigError("compile", "system has no components")
	}
	m := &Model{
		System: sys,
		byName: make(map[string]int, len(sys.Components)),
	}
	for i, c := range sys.Components {
		if _, err := c.Variables(); err != nil {
			return nil, err
		}
		if _, dup := m.byName[c.Name]; dup {
			return nil, domain.NewConfigError("compile", "component %q declared twice", c.Name)
		}
		m.comps = append(m.comps, compiledComponent{comp: c, inputs: make(map[string][]edge)})
		m.byName[c.Name] = i
	}

	for _, conn := range sys.Connections {
		src, ok := m.byName[conn.Src]
		if !ok {
			return nil, domain.NewConfigError("compile", "connection source %q not in system", conn.Src)
		}
		dst, ok := m.byName[conn.Dst]
		if !ok {
			return nil, domain.NewConfigError("compile", "connection destination %q not in system", conn.Dst)
		}
		if _, ok := m.comps[src].comp.FlowOutByName(conn.SrcFlow); !ok {
			return nil, domain.NewConfigError("compile", "component %q has no output flow %q", conn.Src, conn.SrcFlow)
		}
		if _, ok := m.comps[dst].comp.FlowInByName(conn.DstFlow); !ok {
			return nil, domain.NewConfigError("compile", "component %q has no input flow %q", conn.Dst, conn.DstFlow)
		}
		m.comps[dst].inputs[conn.DstFlow] = append(m.comps[dst].inputs[conn.DstFlow], edge{comp: src, flow: conn.SrcFlow})
	}

	if err := m.checkProdConds(); err != nil {
		return nil, err
	}
	if err := m.checkFlowCycles(); err != nil {
		return nil, err
	}
	m.buildOrder()
	m.maxPasses = len(m.order) + 2
	if m.maxPasses < 4 {
		m.maxPasses = 4
	}

	if err := m.compileAutomata(); err != nil {
		return nil, err
	}
	if err := m.compileIndicators(); err != nil {
		return nil, err
	}
	if err := m.compileTargets(); err != nil {
		return nil, err
	}
	for _, pat := range sys.Monitors {
		re, err := domain.CompileAnchored(pat)
		if err != nil {
			return nil, domain.NewConfigError("compile", "monitor pattern %q: %v", pat, err)
		}
		m.monitors = append(m.monitors, re)
	}
	return m, nil
}

// Indicators returns the resolved indicator bindings.
func (m *Model) Indicators() []IndicatorBinding {
	return m.indicators
}

func (m *Model) matchMonitor(id string) bool {
	for _, re := range m.monitors {
		if re.MatchString(id) {
			return true
		}
	}
	return false
}

// checkProdConds verifies that production conditions only reference declared
// input flows of their own component.
func (m *Model) checkProdConds() error {
	for i := range m.comps {
		c := m.comps[i].comp
		for j := range c.FlowsOut {
			out := &c.FlowsOut[j]
			for _, group := range out.ProdCond {
				for _, f := range group {
					if _, ok := c.FlowInByName(f); !ok {
						return domain.NewConfigError("compile",
							"component %q: output %q production condition references unknown input flow %q",
							c.Name, out.Name, f)
					}
				}
			}
		}
	}
	return nil
}

// checkFlowCycles rejects connection cycles within a single flow name.
// Trigger connections are excluded: they feed guards, not propagation, so a
// primary/standby pair is not a cycle.
func (m *Model) checkFlowCycles() error {
	adjacency := make(map[string]map[int][]int)
	for _, conn := range m.System.Connections {
		if conn.SrcFlow != conn.DstFlow {
			continue
		}
		adj := adjacency[conn.SrcFlow]
		if adj == nil {
			adj = make(map[int][]int)
			adjacency[conn.SrcFlow] = adj
		}
		src, dst := m.byName[conn.Src], m.byName[conn.Dst]
		adj[src] = append(adj[src], dst)
	}
	flows := make([]string, 0, len(adjacency))
	for f := range adjacency {
		flows = append(flows, f)
	}
	sort.Strings(flows)
	for _, flow := range flows {
		if comp, ok := findCycle(adjacency[flow], len(m.comps)); ok {
			return domain.NewConfigError("compile",
				"flow %q: connection cycle through component %q", flow, m.comps[comp].comp.Name)
		}
	}
	return nil
}

func findCycle(adj map[int][]int, n int) (int, bool) {
	const (
		white = iota
		grey
		black
	)
	color := make(map[int]int, len(adj))
	var visit func(node int) (int, bool)
	visit = func(node int) (int, bool) {
		color[node] = grey
		for _, next := range adj[node] {
			switch color[next] {
			case grey:
				return next, true
			case white:
				if c, ok := visit(next); ok {
					return c, true
				}
			}
		}
		color[node] = black
		return 0, false
	}
	for node := 0; node < n; node++ {
		if _, ok := adj[node]; !ok {
			continue
		}
		if color[node] == white {
			if c, ok := visit(node); ok {
				return c, true
			}
		}
	}
	return 0, false
}

// buildOrder computes the propagation sweep order. When the full dependency
// graph (connections plus production conditions) is acyclic the order is
// topological and one sweep reaches the fixed point; nodes on cross-flow
// cycles are appended in declaration order and settle through repeated
// sweeps.
func (m *Model) buildOrder() {
	type nodeKey struct {
		comp int
		flow string
		out  bool
	}
	var nodes []propNode
	index := make(map[nodeKey]int)
	add := func(comp int, flow string, out bool) {
		k := nodeKey{comp, flow, out}
		if _, ok := index[k]; !ok {
			index[k] = len(nodes)
			nodes = append(nodes, propNode{comp: comp, flow: flow, out: out})
		}
	}
	for i := range m.comps {
		c := m.comps[i].comp
		for j := range c.FlowsIn {
			add(i, c.FlowsIn[j].Name, false)
		}
		for j := range c.FlowsOut {
			add(i, c.FlowsOut[j].Name, true)
		}
	}

	dependents := make([][]int, len(nodes))
	indegree := make([]int, len(nodes))
	depend := func(node, on nodeKey) {
		ni := index[node]
		oi := index[on]
		dependents[oi] = append(dependents[oi], ni)
		indegree[ni]++
	}
	for i := range m.comps {
		c := m.comps[i].comp
		for j := range c.FlowsIn {
			f := c.FlowsIn[j].Name
			for _, e := range m.comps[i].inputs[f] {
				depend(nodeKey{i, f, false}, nodeKey{e.comp, e.flow, true})
			}
		}
		for j := range c.FlowsOut {
			out := &c.FlowsOut[j]
			for _, group := range out.ProdCond {
				for _, f := range group {
					depend(nodeKey{i, out.Name, true}, nodeKey{i, f, false})
				}
			}
		}
	}

	order := make([]propNode, 0, len(nodes))
	placed := make([]bool, len(nodes))
	var queue []int
	for i := range nodes {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		placed[n] = true
		order = append(order, nodes[n])
		for _, d := range dependents[n] {
			indegree[d]--
			if indegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}
	for i := range nodes {
		if !placed[i] {
			order = append(order, nodes[i])
		}
	}
	m.order = order
}

func (m *Model) compileAutomata() error {
	for i := range m.comps {
		c := m.comps[i].comp
		vars, err := c.Variables()
		if err != nil {
			return err
		}
		for _, atm := range c.Automata {
			stateIdx := make(map[string]int, len(atm.States))
			for si, st := range atm.States {
				stateIdx[st] = si
			}
			ca := compiledAutomaton{owner: i, atm: atm}
			for t := range atm.Transitions {
				tr := &atm.Transitions[t]
				if tr.Cond.Kind == domain.CondVar && !vars.Has(tr.Cond.Var) {
					return domain.NewConfigError("compile",
						"component %q: transition %q guard references unknown variable %q",
						c.Name, tr.Name, tr.Cond.Var)
				}
				ct := compiledTransition{tr: tr, from: stateIdx[tr.From], to: stateIdx[tr.To]}
				for _, eff := range tr.Effects {
					targets, err := m.expandEffect(i, tr.Name, eff)
					if err != nil {
						return err
					}
					ct.effects = append(ct.effects, targets...)
				}
				ca.trans = append(ca.trans, ct)
			}
			m.automata = append(m.automata, ca)
		}
	}
	return nil
}

// expandEffect resolves one effect's component and variable patterns into
// concrete assignments. Only settable variables (prod, prod_available,
// fed_available_out of declared outputs) match; a pattern matching nothing
// is a configuration error.
func (m *Model) expandEffect(owner int, transition string, eff domain.Effect) ([]assignment, error) {
	var comps []int
	if eff.Component == "" {
		comps = []int{owner}
	} else {
		re, err := domain.CompileAnchored(eff.Component)
		if err != nil {
			return nil, domain.NewConfigError("compile",
				"component %q: transition %q: effect component pattern %q: %v",
				m.comps[owner].comp.Name, transition, eff.Component, err)
		}
		for i := range m.comps {
			if re.MatchString(m.comps[i].comp.Name) {
				comps = append(comps, i)
			}
		}
	}
	re, err := domain.CompileAnchored(eff.Var)
	if err != nil {
		return nil, domain.NewConfigError("compile",
			"component %q: transition %q: effect variable pattern %q: %v",
			m.comps[owner].comp.Name, transition, eff.Var, err)
	}
	var out []assignment
	for _, ci := range comps {
		c := m.comps[ci].comp
		for _, name := range c.VarNames() {
			if !c.SettableVar(name) || !re.MatchString(name) {
				continue
			}
			out = append(out, assignment{comp: ci, vname: name, value: eff.Value})
		}
	}
	if len(out) == 0 {
		return nil, domain.NewConfigError("compile",
			"component %q: transition %q: effect pattern %q matches no settable variable",
			m.comps[owner].comp.Name, transition, eff.Var)
	}
	return out, nil
}

// compileSelector compiles an anchored selector; "." selects everything.
func compileSelector(pattern string) (*regexp.Regexp, error) {
	if pattern == domain.SelectAll {
		pattern = ".*"
	}
	return domain.CompileAnchored(pattern)
}

func (m *Model) compileIndicators() error {
	for _, ind := range m.System.Indicators {
		compRe, err := compileSelector(ind.Selector)
		if err != nil {
			return domain.NewConfigError("compile", "indicator %q: selector: %v", ind.Name, err)
		}
		varRe, err := compileSelector(ind.Var)
		if err != nil {
			return domain.NewConfigError("compile", "indicator %q: variable: %v", ind.Name, err)
		}
		var pairs []IndicatorPair
		for i := range m.comps {
			c := m.comps[i].comp
			if !compRe.MatchString(c.Name) {
				continue
			}
			for _, vn := range c.VarNames() {
				if varRe.MatchString(vn) {
					pairs = append(pairs, IndicatorPair{
						Component: c.Name,
						Var:       vn,
						Key:       domain.SeriesKey(c.Name, vn),
					})
				}
			}
		}
		if len(pairs) == 0 {
			return domain.NewConfigError("compile", "indicator %q matches no variable", ind.Name)
		}
		m.indicators = append(m.indicators, IndicatorBinding{Indicator: *ind, Pairs: pairs})
	}
	return nil
}

func (m *Model) compileTargets() error {
	for _, t := range m.System.Targets {
		ci, ok := m.byName[t.Component]
		if !ok {
			return domain.NewConfigError("compile", "target %q: unknown component %q", t.Name, t.Component)
		}
		ct := compiledTarget{t: t, comp: ci, atm: -1}
		switch t.Kind {
		case domain.TargetState:
			for ai := range m.automata {
				if m.automata[ai].owner == ci && m.automata[ai].atm.Name == t.Automaton {
					ct.atm = ai
					break
				}
			}
			if ct.atm < 0 {
				return domain.NewConfigError("compile", "target %q: component %q has no automaton %q",
					t.Name, t.Component, t.Automaton)
			}
			if !m.automata[ct.atm].atm.HasState(t.State) {
				return domain.NewConfigError("compile", "target %q: automaton %q has no state %q",
					t.Name, t.Automaton, t.State)
			}
		default:
			vars, err := m.comps[ci].comp.Variables()
			if err != nil {
				return err
			}
			if !vars.Has(t.Var) {
				return domain.NewConfigError("compile", "target %q: component %q has no variable %q",
					t.Name, t.Component, t.Var)
			}
		}
		m.targets = append(m.targets, ct)
	}
	return nil
}
