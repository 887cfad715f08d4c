package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/results"
)

// contractCampaign builds a campaign with two merged runs, exercising every
// field a store must round-trip: config, accumulators, run records with
// sequences and targets.
func contractCampaign(t *testing.T) *results.Campaign {
	t.Helper()
	c := results.NewCampaign("contract-system", domain.SimulationConfig{
		Runs:     2,
		Schedule: []domain.SchedulePhase{{Start: 0, End: 10, NValues: 3}},
		Seed:     7,
	})
	c.AddIndicator("avail", []domain.Stat{domain.StatMean, domain.StatStddev}, []string{"T1.is_ok_fed_in"})

	require.NoError(t, c.Merge(&results.RunResult{
		Record: results.RunRecord{
			Run: 0, Seed: 7, End: 10,
			Sequence: []domain.FiredTransition{
				{Time: 4, Component: "B1", Automaton: "fm", Transition: "fm_rep_occ", From: "fm_rep", To: "fm_occ"},
			},
		},
		Samples: map[string][]float64{"T1.is_ok_fed_in": {1, 0, 1}},
	}))
	require.NoError(t, c.Merge(&results.RunResult{
		Record: results.RunRecord{
			Run: 1, Seed: 7, End: 6,
			ReachedTargets: []string{"starved"},
		},
		Samples: map[string][]float64{"T1.is_ok_fed_in": {1, 1, 0}},
	}))
	return c
}

// RunResultStoreContract runs a suite of tests verifying that a ResultStore
// implementation adheres to the interface contract.
func RunResultStoreContract(t *testing.T, store ResultStore) {
	ctx := context.Background()

	t.Run("SaveAndLoad", func(t *testing.T) {
		c := contractCampaign(t)
		require.NoError(t, store.SaveCampaign(ctx, c))
		defer func() { _ = store.DeleteCampaign(ctx, c.ID.String()) }()

		loaded, err := store.LoadCampaign(ctx, c.ID.String())
		require.NoError(t, err)

		assert.Equal(t, c.ID, loaded.ID)
		assert.Equal(t, "contract-system", loaded.System)
		assert.Equal(t, c.Config, loaded.Config)
		assert.WithinDuration(t, c.CreatedAt, loaded.CreatedAt, time.Second)

		ind, err := loaded.Indicator("avail")
		require.NoError(t, err)
		assert.Equal(t, 2, ind.N)
		require.Len(t, ind.Pairs, 1)
		assert.Equal(t, "T1.is_ok_fed_in", ind.Pairs[0].Key)
		assert.Equal(t, []float64{2, 1, 1}, ind.Pairs[0].Sum)
		assert.Equal(t, []float64{2, 1, 1}, ind.Pairs[0].SumSq)

		require.Len(t, loaded.Runs, 2)
		assert.Equal(t, "B1.fm.fm_rep_occ", loaded.Runs[0].Sequence[0].ID())
		assert.Equal(t, []string{"starved"}, loaded.Runs[1].ReachedTargets)
	})

	t.Run("SealedEnvelope", func(t *testing.T) {
		// The encryption middleware stores envelopes: metadata plus an
		// opaque payload, no runs or indicators.
		c := results.NewCampaign("contract-system", domain.SimulationConfig{})
		c.Indicators = nil
		c.Sealed = []byte{0xde, 0xad, 0xbe, 0xef}
		require.NoError(t, store.SaveCampaign(ctx, c))
		defer func() { _ = store.DeleteCampaign(ctx, c.ID.String()) }()

		loaded, err := store.LoadCampaign(ctx, c.ID.String())
		require.NoError(t, err)
		assert.Equal(t, c.Sealed, loaded.Sealed)
		assert.Empty(t, loaded.Runs)
	})

	t.Run("LoadNonExistent", func(t *testing.T) {
		_, err := store.LoadCampaign(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, domain.ErrCampaignNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		c := contractCampaign(t)
		require.NoError(t, store.SaveCampaign(ctx, c))
		defer func() { _ = store.DeleteCampaign(ctx, c.ID.String()) }()

		require.NoError(t, c.Merge(&results.RunResult{
			Record:  results.RunRecord{Run: 2, Seed: 7, End: 10},
			Samples: map[string][]float64{"T1.is_ok_fed_in": {0, 0, 0}},
		}))
		require.NoError(t, store.SaveCampaign(ctx, c))

		loaded, err := store.LoadCampaign(ctx, c.ID.String())
		require.NoError(t, err)
		ind, err := loaded.Indicator("avail")
		require.NoError(t, err)
		assert.Equal(t, 3, ind.N)
	})

	t.Run("Delete", func(t *testing.T) {
		c := contractCampaign(t)
		require.NoError(t, store.SaveCampaign(ctx, c))

		require.NoError(t, store.DeleteCampaign(ctx, c.ID.String()))
		_, err := store.LoadCampaign(ctx, c.ID.String())
		assert.ErrorIs(t, err, domain.ErrCampaignNotFound)

		assert.NoError(t, store.DeleteCampaign(ctx, c.ID.String()), "deleting a missing campaign is not an error")
	})

	t.Run("List", func(t *testing.T) {
		c1 := contractCampaign(t)
		c2 := contractCampaign(t)
		require.NoError(t, store.SaveCampaign(ctx, c1))
		require.NoError(t, store.SaveCampaign(ctx, c2))
		defer func() {
			_ = store.DeleteCampaign(ctx, c1.ID.String())
			_ = store.DeleteCampaign(ctx, c2.ID.String())
		}()

		ids, err := store.ListCampaigns(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, c1.ID.String())
		assert.Contains(t, ids, c2.ID.String())
	})
}
