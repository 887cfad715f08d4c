package observability

import (
	"context"

	"github.com/aretw0/sluice/pkg/domain"
)

// Aggregate combines multiple hook sets into a single one. Every event is
// delivered to each set in argument order; nil callbacks are skipped. The
// combined hooks are safe for concurrent use when every member is.
func Aggregate(hooks ...domain.SimulationHooks) domain.SimulationHooks {
	return domain.SimulationHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			for _, h := range hooks {
				if h.OnRunStart != nil {
					h.OnRunStart(ctx, e)
				}
			}
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			for _, h := range hooks {
				if h.OnRunEnd != nil {
					h.OnRunEnd(ctx, e)
				}
			}
		},
		OnTransitionFired: func(ctx context.Context, e *domain.TransitionEvent) {
			for _, h := range hooks {
				if h.OnTransitionFired != nil {
					h.OnTransitionFired(ctx, e)
				}
			}
		},
		OnTargetReached: func(ctx context.Context, e *domain.TargetEvent) {
			for _, h := range hooks {
				if h.OnTargetReached != nil {
					h.OnTargetReached(ctx, e)
				}
			}
		},
	}
}
