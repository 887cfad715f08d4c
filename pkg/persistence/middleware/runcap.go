package middleware

import (
	"context"

	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/results"
)

type runCap struct {
	next ports.ResultStore
	max  int
}

// NewRunCap creates a middleware that bounds how many per-run records a
// stored campaign keeps. Indicator statistics already aggregate over every
// run; the cap only limits the stored run-by-run detail, which dominates the
// payload of large campaigns. Chain it outside encryption so the cap applies
// before sealing.
func NewRunCap(max int) Middleware {
	if max < 0 {
		panic("run cap must not be negative")
	}
	return func(next ports.ResultStore) ports.ResultStore {
		return &runCap{next: next, max: max}
	}
}

func (m *runCap) SaveCampaign(ctx context.Context, c *results.Campaign) error {
	if len(c.Runs) <= m.max {
		return m.next.SaveCampaign(ctx, c)
	}

	// Shallow copy so the caller's campaign keeps its full run list. The
	// truncated slice shares its backing array, which is safe because
	// nothing below writes through it.
	capped := *c
	capped.Runs = c.Runs[:m.max]
	return m.next.SaveCampaign(ctx, &capped)
}

func (m *runCap) LoadCampaign(ctx context.Context, id string) (*results.Campaign, error) {
	return m.next.LoadCampaign(ctx, id)
}

func (m *runCap) DeleteCampaign(ctx context.Context, id string) error {
	return m.next.DeleteCampaign(ctx, id)
}

func (m *runCap) ListCampaigns(ctx context.Context) ([]string, error) {
	return m.next.ListCampaigns(ctx)
}
