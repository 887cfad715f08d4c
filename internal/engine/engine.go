package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/aretw0/sluice/internal/logging"
	"github.com/aretw0/sluice/pkg/domain"
)

var errNotStarted = errors.New("run not started")

// Engine executes one simulation run over a compiled model. It is not safe
// for concurrent use; campaigns give every run its own Engine.
type Engine struct {
	model *Model
	rng   *rand.Rand
	log   *slog.Logger
	hooks domain.SimulationHooks

	run  int
	seed uint64

	now     float64
	seq     uint64
	queue   eventQueue
	pending map[pendingKey]*event
	warned  map[pendingKey]bool

	vars   []*domain.VariableSet
	states []int

	started  bool
	frozen   bool
	frozenAt float64
	stopped  bool
	reached  []string
	sequence []domain.FiredTransition
	planned  *pendingKey
}

// pendingKey identifies one (automaton, transition) slot. The scheduler
// keeps at most one live event per key.
type pendingKey struct {
	atm int
	tr  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithHooks registers simulation hooks.
func WithHooks(h domain.SimulationHooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithLogger sets the run logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an engine for one run. The RNG stream is keyed (seed, run), so
// the same seed reproduces a campaign run for run regardless of how runs are
// scheduled across workers.
func New(m *Model, run int, seed uint64, opts ...Option) *Engine {
	e := &Engine{
		model: m,
		rng:   rand.New(rand.NewPCG(seed, uint64(run))),
		log:   logging.NewNop(),
		run:   run,
		seed:  seed,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start resets the run to t=0, propagates initial values, checks targets and
// arms every transition whose guard already holds.
func (e *Engine) Start(ctx context.Context) error {
	e.now = 0
	e.seq = 0
	e.queue = e.queue[:0]
	e.pending = make(map[pendingKey]*event)
	e.warned = make(map[pendingKey]bool)
	e.frozen = false
	e.frozenAt = 0
	e.stopped = false
	e.reached = nil
	e.sequence = nil
	e.planned = nil

	e.vars = make([]*domain.VariableSet, len(e.model.comps))
	for i := range e.model.comps {
		vars, err := e.model.comps[i].comp.Variables()
		if err != nil {
			return err
		}
		e.vars[i] = vars
	}
	e.states = make([]int, len(e.model.automata))
	e.started = true

	if err := e.propagate(); err != nil {
		return err
	}
	e.emitRunStart(ctx)
	e.checkTargets(ctx)
	if !e.frozen {
		e.armAll()
	}
	return nil
}

// Stop freezes the run and emits the run-end hook. Calling it again is a
// no-op.
func (e *Engine) Stop(ctx context.Context) {
	if !e.started || e.stopped {
		return
	}
	e.stopped = true
	if !e.frozen {
		e.frozen = true
		e.frozenAt = e.now
	}
	e.emitRunEnd(ctx)
}

// Now returns the current simulation clock.
func (e *Engine) Now() float64 { return e.now }

// Run returns the run index.
func (e *Engine) Run() int { return e.run }

// Frozen reports whether the run stopped firing events, either because a
// target was reached or Stop was called.
func (e *Engine) Frozen() bool { return e.frozen }

// FrozenAt returns the clock at which the run froze. It is meaningful only
// while Frozen reports true.
func (e *Engine) FrozenAt() float64 { return e.frozenAt }

// ReachedTargets returns the names of the targets satisfied so far.
func (e *Engine) ReachedTargets() []string { return e.reached }

// Sequence returns the monitored transition firings in firing order.
func (e *Engine) Sequence() []domain.FiredTransition { return e.sequence }

// Value reads one component variable at the current clock.
func (e *Engine) Value(component, variable string) (bool, error) {
	if !e.started {
		return false, errNotStarted
	}
	ci, ok := e.model.byName[component]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrUnknownComponent, component)
	}
	return e.vars[ci].Get(variable)
}

// State returns the current state of one automaton.
func (e *Engine) State(component, automaton string) (string, error) {
	if !e.started {
		return "", errNotStarted
	}
	ai, err := e.automatonIndex(component, automaton)
	if err != nil {
		return "", err
	}
	ca := &e.model.automata[ai]
	return ca.atm.States[e.states[ai]], nil
}

func (e *Engine) automatonIndex(component, automaton string) (int, error) {
	ci, ok := e.model.byName[component]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownComponent, component)
	}
	for ai := range e.model.automata {
		if e.model.automata[ai].owner == ci && e.model.automata[ai].atm.Name == automaton {
			return ai, nil
		}
	}
	return 0, fmt.Errorf("%w: %s.%s", domain.ErrUnknownAutomaton, component, automaton)
}

// value reads a variable resolved at compile time; the name is known valid.
func (e *Engine) value(comp int, name string) bool {
	v, _ := e.vars[comp].Get(name)
	return v
}

// setVar writes a derived variable resolved at compile time.
func (e *Engine) setVar(comp int, name string, val bool) bool {
	changed, _ := e.vars[comp].Set(name, val)
	return changed
}

func (e *Engine) eventBase(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Type:   t,
		System: e.model.System.Name,
		Run:    e.run,
		Time:   e.now,
	}
}

func (e *Engine) emitRunStart(ctx context.Context) {
	if e.hooks.OnRunStart == nil {
		return
	}
	e.hooks.OnRunStart(ctx, &domain.RunEvent{
		EventBase: e.eventBase(domain.EventRunStart),
		Seed:      e.seed,
	})
}

func (e *Engine) emitRunEnd(ctx context.Context) {
	if e.hooks.OnRunEnd == nil {
		return
	}
	e.hooks.OnRunEnd(ctx, &domain.RunEvent{
		EventBase:     e.eventBase(domain.EventRunEnd),
		Seed:          e.seed,
		TargetReached: len(e.reached) > 0,
	})
}

func (e *Engine) emitTransition(ctx context.Context, fired domain.FiredTransition) {
	if e.hooks.OnTransitionFired == nil {
		return
	}
	e.hooks.OnTransitionFired(ctx, &domain.TransitionEvent{
		EventBase: e.eventBase(domain.EventTransition),
		Fired:     fired,
	})
}

func (e *Engine) emitTarget(ctx context.Context, name string) {
	if e.hooks.OnTargetReached == nil {
		return
	}
	e.hooks.OnTargetReached(ctx, &domain.TargetEvent{
		EventBase: e.eventBase(domain.EventTargetReached),
		Target:    name,
	})
}
