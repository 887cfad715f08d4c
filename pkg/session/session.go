package session

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/sluice/internal/engine"
	"github.com/aretw0/sluice/pkg/domain"
)

// Session is one live interactive run: a started engine stepped manually
// through Fireable, Plan, StepForward and Goto.
//
// A Session is not safe for concurrent use. Serialize access through
// Manager.With; the delegating methods exist so callers inside With (and
// single-goroutine embedders) can drive the run directly.
type Session struct {
	ID        string
	System    string
	CreatedAt time.Time

	eng *engine.Engine
}

// Fireable lists the armed transitions with their scheduled times, soonest
// first.
func (s *Session) Fireable() []domain.TransitionRef {
	return s.eng.Fireable()
}

// Plan forces an armed transition to fire on the next StepForward, at the
// current clock, ahead of every queued event.
func (s *Session) Plan(ref domain.TransitionRef) error {
	return s.eng.Plan(ref)
}

// StepForward fires the next scheduled event and returns it, or nil when
// nothing is scheduled.
func (s *Session) StepForward(ctx context.Context) (*domain.FiredTransition, error) {
	return s.eng.StepForward(ctx)
}

// Goto advances the clock to t, firing every event scheduled at or before it.
func (s *Session) Goto(ctx context.Context, t float64) error {
	return s.eng.Goto(ctx, t)
}

// Advance is Goto with a report: it fires everything scheduled up to t,
// lands the clock on t and returns the fired transitions in firing order.
// On a frozen run the clock still advances but nothing fires.
func (s *Session) Advance(ctx context.Context, t float64) ([]domain.FiredTransition, error) {
	fired := []domain.FiredTransition{}
	for !s.eng.Frozen() {
		refs := s.eng.Fireable()
		if len(refs) == 0 || refs[0].Time > t {
			break
		}
		ft, err := s.eng.StepForward(ctx)
		if err != nil {
			return fired, err
		}
		if ft == nil {
			break
		}
		fired = append(fired, *ft)
	}
	if err := s.eng.Goto(ctx, t); err != nil {
		return fired, err
	}
	return fired, nil
}

// Fire forces the armed transition with the given fully qualified ID
// ("component.automaton.transition") to fire at the current clock.
func (s *Session) Fire(ctx context.Context, id string) (*domain.FiredTransition, error) {
	for _, ref := range s.eng.Fireable() {
		if ref.ID() == id {
			if err := s.eng.Plan(ref); err != nil {
				return nil, err
			}
			return s.eng.StepForward(ctx)
		}
	}
	return nil, fmt.Errorf("transition %q: %w", id, domain.ErrUnknownTransition)
}

// Value reads one boolean variable of one component.
func (s *Session) Value(component, variable string) (bool, error) {
	return s.eng.Value(component, variable)
}

// State reads the current state of one automaton.
func (s *Session) State(component, automaton string) (string, error) {
	return s.eng.State(component, automaton)
}

// Now returns the session clock.
func (s *Session) Now() float64 { return s.eng.Now() }

// Frozen reports whether the run stopped on a target.
func (s *Session) Frozen() bool { return s.eng.Frozen() }

// FrozenAt returns the freeze instant of a frozen run, zero otherwise.
func (s *Session) FrozenAt() float64 { return s.eng.FrozenAt() }

// ReachedTargets lists the targets reached so far, in order.
func (s *Session) ReachedTargets() []string { return s.eng.ReachedTargets() }

// Sequence returns the monitored transition firings so far.
func (s *Session) Sequence() []domain.FiredTransition { return s.eng.Sequence() }
