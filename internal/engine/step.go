package engine

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/aretw0/sluice/pkg/domain"
)

// StepForward fires the next scheduled event and returns it. It returns nil
// when nothing is scheduled. A planned transition fires first, at the
// current clock, ahead of every queued event.
func (e *Engine) StepForward(ctx context.Context) (*domain.FiredTransition, error) {
	if !e.started {
		return nil, errNotStarted
	}
	if e.frozen {
		return nil, domain.ErrRunFrozen
	}
	if e.planned != nil {
		k := *e.planned
		e.planned = nil
		if _, ok := e.pending[k]; !ok {
			return nil, fmt.Errorf("planned transition is no longer armed")
		}
		delete(e.pending, k)
		return e.fire(ctx, k, e.now)
	}
	ev := e.popNext(math.Inf(1))
	if ev == nil {
		return nil, nil
	}
	return e.fire(ctx, pendingKey{atm: ev.atm, tr: ev.tr}, ev.time)
}

// Goto advances the clock to t, firing every event scheduled at or before
// it, so reads at t observe the state just after the last event at t. Once
// the run freezes the remaining events are skipped but the clock still
// reaches t, so later sample points read the frozen state.
func (e *Engine) Goto(ctx context.Context, t float64) error {
	if !e.started {
		return errNotStarted
	}
	if t < e.now {
		return fmt.Errorf("cannot rewind clock from %v to %v", e.now, t)
	}
	for !e.frozen {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev := e.popNext(t)
		if ev == nil {
			break
		}
		if _, err := e.fire(ctx, pendingKey{atm: ev.atm, tr: ev.tr}, ev.time); err != nil {
			return err
		}
	}
	e.now = t
	return nil
}

// popNext removes and returns the earliest live event at or before limit.
// Stale events (cancelled or replaced) are discarded on the way.
func (e *Engine) popNext(limit float64) *event {
	for len(e.queue) > 0 {
		ev := e.queue[0]
		k := pendingKey{atm: ev.atm, tr: ev.tr}
		if cur, ok := e.pending[k]; !ok || cur != ev {
			heap.Pop(&e.queue)
			continue
		}
		if ev.time > limit {
			return nil
		}
		heap.Pop(&e.queue)
		delete(e.pending, k)
		return ev
	}
	return nil
}

// fire applies one transition at time at: effects and the state change are
// atomic, then propagation runs to its fixed point, then guards reconcile.
func (e *Engine) fire(ctx context.Context, k pendingKey, at float64) (*domain.FiredTransition, error) {
	ca := &e.model.automata[k.atm]
	ct := &ca.trans[k.tr]
	e.now = at
	from := ca.atm.States[e.states[k.atm]]

	for _, a := range ct.effects {
		e.setVar(a.comp, a.vname, a.value)
	}
	e.states[k.atm] = ct.to

	if err := e.propagate(); err != nil {
		return nil, err
	}

	fired := domain.FiredTransition{
		Time:       at,
		Component:  e.model.comps[ca.owner].comp.Name,
		Automaton:  ca.atm.Name,
		Transition: ct.tr.Name,
		From:       from,
		To:         ct.tr.To,
	}
	if e.model.matchMonitor(fired.ID()) {
		e.sequence = append(e.sequence, fired)
	}
	e.emitTransition(ctx, fired)
	e.checkTargets(ctx)
	if !e.frozen {
		e.armAll()
	}
	return &fired, nil
}

// propagate runs sweeps until no variable changes. Exceeding the pass bound
// means the model cannot settle, which is reported as an inconsistency with
// a full variable dump.
func (e *Engine) propagate() error {
	for pass := 0; pass < e.model.maxPasses; pass++ {
		if !e.sweep() {
			return nil
		}
	}
	dump := make(map[string]bool)
	for i := range e.model.comps {
		name := e.model.comps[i].comp.Name
		for k, v := range e.vars[i].Snapshot() {
			dump[name+"."+k] = v
		}
	}
	return &domain.InconsistencyError{
		Run:    e.run,
		Time:   e.now,
		Detail: fmt.Sprintf("propagation did not settle after %d passes", e.model.maxPasses),
		Dump:   dump,
	}
}

// sweep recomputes every derived variable once, in propagation order, and
// reports whether anything changed.
func (e *Engine) sweep() bool {
	changed := false
	for _, n := range e.model.order {
		cc := &e.model.comps[n.comp]
		if n.out {
			out, _ := cc.comp.FlowOutByName(n.flow)
			condSat := e.condSatisfied(n.comp, out)
			prod := e.value(n.comp, domain.VarName(n.flow, domain.SuffixProd))
			prodAvail := e.value(n.comp, domain.VarName(n.flow, domain.SuffixProdAvailable))
			fedAvail := e.value(n.comp, domain.VarName(n.flow, domain.SuffixFedAvailableOut))
			fedOut := prodAvail && condSat && prod && fedAvail
			if out.Negate {
				fedOut = !fedOut
			}
			if e.setVar(n.comp, domain.VarName(n.flow, domain.SuffixFedOut), fedOut) {
				changed = true
			}
		} else {
			in, _ := cc.comp.FlowInByName(n.flow)
			inVal, availVal := e.aggregate(in.Logic, cc.inputs[n.flow])
			if e.setVar(n.comp, domain.VarName(n.flow, domain.SuffixIn), inVal) {
				changed = true
			}
			if e.setVar(n.comp, domain.VarName(n.flow, domain.SuffixAvailableIn), availVal) {
				changed = true
			}
			if e.setVar(n.comp, domain.VarName(n.flow, domain.SuffixFedIn), inVal && availVal) {
				changed = true
			}
		}
	}
	return changed
}

// aggregate folds the upstream fed values of one input flow. No edges means
// unfed but available.
func (e *Engine) aggregate(logic domain.Logic, edges []edge) (in, avail bool) {
	if len(edges) == 0 {
		return false, true
	}
	and := logic == domain.LogicAnd
	in, avail = and, and
	for _, ed := range edges {
		fedOut := e.value(ed.comp, domain.VarName(ed.flow, domain.SuffixFedOut))
		fedAvail := e.value(ed.comp, domain.VarName(ed.flow, domain.SuffixFedAvailableOut))
		if and {
			in = in && fedOut
			avail = avail && fedAvail
		} else {
			in = in || fedOut
			avail = avail || fedAvail
		}
	}
	return in, avail
}

// condSatisfied evaluates a production condition: every group needs at least
// one fed input. An empty group can never be satisfied.
func (e *Engine) condSatisfied(comp int, out *domain.FlowOut) bool {
	for _, group := range out.ProdCond {
		ok := false
		for _, f := range group {
			if e.value(comp, domain.VarName(f, domain.SuffixFedIn)) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// armAll reconciles pending events with the current guards: transitions out
// of a left state always cancel, newly true guards arm one event, dropped
// guards cancel interruptible events. Armed transitions never re-draw.
func (e *Engine) armAll() {
	for ai := range e.model.automata {
		ca := &e.model.automata[ai]
		cur := e.states[ai]
		for ti := range ca.trans {
			ct := &ca.trans[ti]
			k := pendingKey{atm: ai, tr: ti}
			if ct.from != cur {
				delete(e.pending, k)
				continue
			}
			_, armed := e.pending[k]
			guard := e.evalCond(ca.owner, ct.tr.Cond)
			switch {
			case guard && !armed:
				e.arm(k, ct)
			case !guard && armed && ct.tr.Interruptible:
				delete(e.pending, k)
			}
		}
	}
}

func (e *Engine) arm(k pendingKey, ct *compiledTransition) {
	dt, ok := e.draw(k, ct.tr.Law)
	if !ok {
		return
	}
	ev := &event{time: e.now + dt, seq: e.seq, atm: k.atm, tr: k.tr}
	e.seq++
	e.pending[k] = ev
	heap.Push(&e.queue, ev)
}

// draw samples the occurrence law. A zero-rate exponential never fires; it
// is logged once per transition per run.
func (e *Engine) draw(k pendingKey, law domain.Law) (float64, bool) {
	if law.Kind == domain.LawExp {
		if law.Rate == 0 {
			if !e.warned[k] {
				e.warned[k] = true
				ca := &e.model.automata[k.atm]
				e.log.Warn("exponential transition with zero rate never fires",
					"run", e.run,
					"component", e.model.comps[ca.owner].comp.Name,
					"automaton", ca.atm.Name,
					"transition", ca.atm.Transitions[k.tr].Name)
			}
			return 0, false
		}
		return e.rng.ExpFloat64() / law.Rate, true
	}
	return law.Delay, true
}

func (e *Engine) evalCond(owner int, c domain.Cond) bool {
	if v, ok := c.IsConst(); ok {
		return v
	}
	val := e.value(owner, c.Var)
	if c.Negate {
		return !val
	}
	return val
}

// checkTargets freezes the run on the first satisfied target. A frozen run
// fires no more events; sampling continues against the final state.
func (e *Engine) checkTargets(ctx context.Context) {
	if e.frozen {
		return
	}
	for i := range e.model.targets {
		ct := &e.model.targets[i]
		if !e.targetSatisfied(ct) || slices.Contains(e.reached, ct.t.Name) {
			continue
		}
		e.reached = append(e.reached, ct.t.Name)
		e.emitTarget(ctx, ct.t.Name)
	}
	if len(e.reached) > 0 {
		e.frozen = true
		e.frozenAt = e.now
	}
}

func (e *Engine) targetSatisfied(ct *compiledTarget) bool {
	var ok bool
	if ct.t.Kind == domain.TargetState {
		cur := e.model.automata[ct.atm].atm.States[e.states[ct.atm]]
		ok = cur == ct.t.State
	} else {
		v, err := e.vars[ct.comp].Get(ct.t.Var)
		if err != nil {
			return false
		}
		ok = v == ct.t.Value
	}
	if ct.t.Comparator == domain.CompNEQ {
		return !ok
	}
	return ok
}
