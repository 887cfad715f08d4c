package dsl

import "github.com/aretw0/sluice/pkg/domain"

// ComponentBuilder provides a fluent API for shaping one declared component.
// Calls queue modifications that run when the owning Builder constructs the
// system.
type ComponentBuilder struct {
	builder *Builder
	mods    []func(*domain.Component) error
}

func (cb *ComponentBuilder) applyMods(c *domain.Component) error {
	for _, mod := range cb.mods {
		if err := mod(c); err != nil {
			return err
		}
	}
	return nil
}

// FlowIn declares an input flow aggregated with the given logic.
func (cb *ComponentBuilder) FlowIn(name string, logic domain.Logic) *ComponentBuilder {
	cb.mods = append(cb.mods, func(c *domain.Component) error {
		return c.DeclareFlowIn(name, logic)
	})
	return cb
}

// FlowOut declares an output flow.
func (cb *ComponentBuilder) FlowOut(name string, opts ...domain.FlowOutOption) *ComponentBuilder {
	cb.mods = append(cb.mods, func(c *domain.Component) error {
		return c.DeclareFlowOut(name, opts...)
	})
	return cb
}

// FlowInOut declares a pass-through pair: an input plus an output that
// produces while the input is fed.
func (cb *ComponentBuilder) FlowInOut(name string, logic domain.Logic, opts ...domain.FlowOutOption) *ComponentBuilder {
	cb.mods = append(cb.mods, func(c *domain.Component) error {
		return c.DeclareFlowInOut(name, logic, opts...)
	})
	return cb
}

// TriggerOut declares an output driven by a trigger automaton watching the
// "{name}_trigger" input.
func (cb *ComponentBuilder) TriggerOut(name string, spec domain.TriggerSpec, opts ...domain.FlowOutOption) *ComponentBuilder {
	cb.mods = append(cb.mods, func(c *domain.Component) error {
		return c.DeclareTriggerOut(name, spec, opts...)
	})
	return cb
}

// TempoOut declares an output whose production follows prod_available with
// enable and disable delays.
func (cb *ComponentBuilder) TempoOut(name string, spec domain.TempoSpec, opts ...domain.FlowOutOption) *ComponentBuilder {
	cb.mods = append(cb.mods, func(c *domain.Component) error {
		return c.DeclareTempoOut(name, spec, opts...)
	})
	return cb
}

// Automaton attaches a fully specified automaton.
func (cb *ComponentBuilder) Automaton(a *domain.Automaton) *ComponentBuilder {
	cb.mods = append(cb.mods, func(c *domain.Component) error {
		return c.AddAutomaton(a)
	})
	return cb
}

// DelayFailure attaches a failure mode with fixed time-to-failure and
// time-to-repair. Effect patterns are forced false on failure and restored
// on repair.
func (cb *ComponentBuilder) DelayFailure(name string, failureTime, repairTime float64, effects ...string) *ComponentBuilder {
	cb.mods = append(cb.mods, func(c *domain.Component) error {
		return c.AddDelayFailureMode(name, domain.Cond{}, failureTime, effects, repairTime)
	})
	return cb
}

// ExpFailure attaches a failure mode with exponential failure and repair
// rates.
func (cb *ComponentBuilder) ExpFailure(name string, failureRate, repairRate float64, effects ...string) *ComponentBuilder {
	cb.mods = append(cb.mods, func(c *domain.Component) error {
		return c.AddExpFailureMode(name, domain.Cond{}, failureRate, effects, repairRate)
	})
	return cb
}

// With queues an arbitrary modification, for shapes the fluent surface does
// not cover. This is primarily an escape hatch for guarded failure modes and
// other advanced automata.
func (cb *ComponentBuilder) With(mod func(*domain.Component) error) *ComponentBuilder {
	cb.mods = append(cb.mods, mod)
	return cb
}
