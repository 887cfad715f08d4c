package engine

import (
	"fmt"
	"sort"

	"github.com/aretw0/sluice/pkg/domain"
)

// Fireable lists the armed transitions with their scheduled times, soonest
// first. The order is deterministic: ties sort by qualified transition ID.
func (e *Engine) Fireable() []domain.TransitionRef {
	if !e.started {
		return nil
	}
	refs := make([]domain.TransitionRef, 0, len(e.pending))
	for k, ev := range e.pending {
		ca := &e.model.automata[k.atm]
		tr := ca.trans[k.tr].tr
		refs = append(refs, domain.TransitionRef{
			Component:  e.model.comps[ca.owner].comp.Name,
			Automaton:  ca.atm.Name,
			Transition: tr.Name,
			From:       tr.From,
			To:         tr.To,
			Time:       ev.time,
		})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Time != refs[j].Time {
			return refs[i].Time < refs[j].Time
		}
		return refs[i].ID() < refs[j].ID()
	})
	return refs
}

// Plan forces an armed transition to fire on the next StepForward, at the
// current clock, ahead of every queued event.
func (e *Engine) Plan(ref domain.TransitionRef) error {
	if !e.started {
		return errNotStarted
	}
	ai, err := e.automatonIndex(ref.Component, ref.Automaton)
	if err != nil {
		return err
	}
	ca := &e.model.automata[ai]
	ti := -1
	for i := range ca.atm.Transitions {
		if ca.atm.Transitions[i].Name == ref.Transition {
			ti = i
			break
		}
	}
	if ti < 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownTransition, ref.ID())
	}
	k := pendingKey{atm: ai, tr: ti}
	if _, ok := e.pending[k]; !ok {
		return fmt.Errorf("transition %s is not armed", ref.ID())
	}
	e.planned = &k
	return nil
}
