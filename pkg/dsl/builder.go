package dsl

import (
	"fmt"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/registry"
)

// Params carries the class parameters of a component declaration.
type Params map[string]any

// Builder assembles a system declaratively. Every call records an operation;
// Build applies them in call order, so an operation may only reference
// components declared by earlier calls.
type Builder struct {
	name     string
	registry *registry.Registry
	ops      []op
}

type op struct {
	what  string
	apply func(*domain.System) error
}

// Option adjusts a Builder.
type Option func(*Builder)

// WithRegistry resolves component classes against r instead of
// registry.Default.
func WithRegistry(r *registry.Registry) Option {
	return func(b *Builder) { b.registry = r }
}

// NewSystem creates a builder for a named system.
func NewSystem(name string, opts ...Option) *Builder {
	b := &Builder{
		name:     name,
		registry: registry.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) record(what string, apply func(*domain.System) error) {
	b.ops = append(b.ops, op{what: what, apply: apply})
}

// Component declares a component built from a registered class. The returned
// ComponentBuilder customises it further; its modifications run after the
// class factory, when Build constructs the system.
func (b *Builder) Component(name, class string, params Params) *ComponentBuilder {
	cb := &ComponentBuilder{builder: b}
	b.record(fmt.Sprintf("component %q", name), func(s *domain.System) error {
		c, err := b.registry.Build(class, name, params)
		if err != nil {
			return err
		}
		if err := cb.applyMods(c); err != nil {
			return err
		}
		return s.AddComponent(c)
	})
	return cb
}

// Custom declares an empty component shaped entirely through the returned
// ComponentBuilder.
func (b *Builder) Custom(name string) *ComponentBuilder {
	cb := &ComponentBuilder{builder: b}
	b.record(fmt.Sprintf("component %q", name), func(s *domain.System) error {
		c := domain.NewComponent(name)
		if err := cb.applyMods(c); err != nil {
			return err
		}
		return s.AddComponent(c)
	})
	return cb
}

// Add inserts a component built elsewhere, e.g. by a knowledge-base
// constructor.
func (b *Builder) Add(c *domain.Component) *Builder {
	name := ""
	if c != nil {
		name = c.Name
	}
	b.record(fmt.Sprintf("component %q", name), func(s *domain.System) error {
		return s.AddComponent(c)
	})
	return b
}

// Connect wires one output port to one input port, e.g.
//
//	b.Connect("S1", "is_ok_out", "B1", "is_ok_in")
func (b *Builder) Connect(src, srcPort, dst, dstPort string) *Builder {
	b.record(fmt.Sprintf("connect %s.%s -> %s.%s", src, srcPort, dst, dstPort), func(s *domain.System) error {
		return s.Connect(src, srcPort, dst, dstPort)
	})
	return b
}

// ConnectFlow wires a flow between two components, skipping edges that
// already exist.
func (b *Builder) ConnectFlow(src, dst, flow string) *Builder {
	b.record(fmt.Sprintf("connect %s -> %s on %s", src, dst, flow), func(s *domain.System) error {
		_, err := s.ConnectFlow(src, dst, flow)
		return err
	})
	return b
}

// ConnectTrigger wires src's flow output to dst's trigger input for that
// flow.
func (b *Builder) ConnectTrigger(src, dst, flow string) *Builder {
	b.record(fmt.Sprintf("trigger %s -> %s on %s", src, dst, flow), func(s *domain.System) error {
		return s.ConnectTrigger(src, dst, flow)
	})
	return b
}

// AutoConnect wires every shared flow between components matching the
// anchored source and destination patterns.
func (b *Builder) AutoConnect(srcPattern, dstPattern string) *Builder {
	b.record(fmt.Sprintf("autoconnect %s -> %s", srcPattern, dstPattern), func(s *domain.System) error {
		_, err := s.AutoConnect(srcPattern, dstPattern)
		return err
	})
	return b
}

// LogicOr adds an or-aggregation gate over the outputs selected by the input
// specs ("compPattern" or "compPattern:flowPattern").
func (b *Builder) LogicOr(name string, inputs ...string) *Builder {
	b.record(fmt.Sprintf("gate %q", name), func(s *domain.System) error {
		_, err := s.AddLogicOr(name, inputs)
		return err
	})
	return b
}

// LogicAnd adds an and-aggregation gate over the selected outputs.
func (b *Builder) LogicAnd(name string, inputs ...string) *Builder {
	b.record(fmt.Sprintf("gate %q", name), func(s *domain.System) error {
		_, err := s.AddLogicAnd(name, inputs)
		return err
	})
	return b
}

// Indicator declares an observation of one variable across the components
// matched by the anchored selector.
func (b *Builder) Indicator(name, selector, variable string, stats ...domain.Stat) *Builder {
	b.record(fmt.Sprintf("indicator %q", name), func(s *domain.System) error {
		return s.AddIndicator(name, selector, variable, stats...)
	})
	return b
}

// Target declares an end-of-run condition.
func (b *Builder) Target(t *domain.Target) *Builder {
	name := ""
	if t != nil {
		name = t.Name
	}
	b.record(fmt.Sprintf("target %q", name), func(s *domain.System) error {
		return s.AddTarget(t)
	})
	return b
}

// MonitorTransitions records which fired transitions runs keep, as anchored
// "component.automaton.transition" patterns.
func (b *Builder) MonitorTransitions(patterns ...string) *Builder {
	b.record("monitor transitions", func(s *domain.System) error {
		return s.MonitorTransitions(patterns...)
	})
	return b
}

// Build applies every recorded operation in order and returns the assembled
// system. The first failing operation aborts the build.
func (b *Builder) Build() (*domain.System, error) {
	s := domain.NewSystem(b.name)
	for _, op := range b.ops {
		if err := op.apply(s); err != nil {
			return nil, fmt.Errorf("%s: %w", op.what, err)
		}
	}
	return s, nil
}
