// Package rbd is the reliability-block-diagram knowledge base: component
// classes for sources, blocks, targets and aggregation gates exchanging a
// single boolean flow. Importing the package registers every class with
// registry.Default, so systems can be assembled from class names alone.
package rbd

import (
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/registry"
)

// DefaultFlow is the flow exchanged by rbd components unless the "flow"
// param overrides it.
const DefaultFlow = "is_ok"

// Class names understood by the registry.
const (
	ClassSource        = "Source"
	ClassSourceTrigger = "SourceTrigger"
	ClassBlock         = "Block"
	ClassTarget        = "Target"
	ClassLogicOr       = "LogicOr"
	ClassLogicAnd      = "LogicAnd"
)

func init() {
	Register(registry.Default())
}

// Register adds every rbd class to r.
func Register(r *registry.Registry) {
	r.Register(ClassSource, buildSource)
	r.Register(ClassSourceTrigger, buildSourceTrigger)
	r.Register(ClassBlock, buildBlock)
	r.Register(ClassTarget, buildTarget)
	r.Register(ClassLogicOr, buildLogicGate(domain.LogicOr))
	r.Register(ClassLogicAnd, buildLogicGate(domain.LogicAnd))
}

func flowOrDefault(flow string) string {
	if flow == "" {
		return DefaultFlow
	}
	return flow
}

// NewSource builds a component that produces its flow unconditionally.
func NewSource(name, flow string, opts ...domain.FlowOutOption) (*domain.Component, error) {
	c := domain.NewComponent(name)
	c.Class = ClassSource
	all := append([]domain.FlowOutOption{domain.ProducesByDefault()}, opts...)
	if err := c.DeclareFlowOut(flowOrDefault(flow), all...); err != nil {
		return nil, err
	}
	return c, nil
}

// NewSourceTrigger builds a standby source: it starts producing TimeUp after
// its trigger input stops being fed and stops TimeDown after the input
// recovers. A zero spec.Logic defaults to LogicAnd, so losing any one of the
// watched feeds arms the trigger.
func NewSourceTrigger(name, flow string, spec domain.TriggerSpec, opts ...domain.FlowOutOption) (*domain.Component, error) {
	c := domain.NewComponent(name)
	c.Class = ClassSourceTrigger
	if spec.Logic == "" {
		spec.Logic = domain.LogicAnd
	}
	if err := c.DeclareTriggerOut(flowOrDefault(flow), spec, opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// NewBlock builds a pass-through component: it consumes the flow with the
// given input logic and re-produces it while fed. A zero logic defaults to
// LogicOr.
func NewBlock(name, flow string, logic domain.Logic, opts ...domain.FlowOutOption) (*domain.Component, error) {
	c := domain.NewComponent(name)
	c.Class = ClassBlock
	if err := c.DeclareFlowInOut(flowOrDefault(flow), logic, opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// NewTarget builds a sink that only consumes. A zero logic defaults to
// LogicAnd, so the target is fed only when every upstream feeds it.
func NewTarget(name, flow string, logic domain.Logic) (*domain.Component, error) {
	c := domain.NewComponent(name)
	c.Class = ClassTarget
	if logic == "" {
		logic = domain.LogicAnd
	}
	if err := c.DeclareFlowIn(flowOrDefault(flow), logic); err != nil {
		return nil, err
	}
	return c, nil
}

// NewLogicGate builds an aggregation relay: every flow in flows becomes an
// input consumed with the gate logic, and the gate exposes one output named
// domain.GateFlowName that produces while all inputs are fed.
func NewLogicGate(name string, logic domain.Logic, flows []string, opts ...domain.FlowOutOption) (*domain.Component, error) {
	if !logic.Valid() {
		return nil, domain.NewConfigError("kb", "gate %q: invalid logic %q", name, logic)
	}
	if len(flows) == 0 {
		return nil, domain.NewConfigError("kb", "gate %q: no input flows", name)
	}
	c := domain.NewComponent(name)
	c.Class = ClassLogicOr
	if logic == domain.LogicAnd {
		c.Class = ClassLogicAnd
	}
	for _, flow := range flows {
		if err := c.DeclareFlowIn(flow, logic); err != nil {
			return nil, err
		}
	}
	all := append([]domain.FlowOutOption{domain.ProducesByDefault(), domain.WithProdCond(flows...)}, opts...)
	if err := c.DeclareFlowOut(domain.GateFlowName, all...); err != nil {
		return nil, err
	}
	return c, nil
}
