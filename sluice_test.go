package sluice_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/pkg/adapters/memory"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/dsl"
	"github.com/aretw0/sluice/pkg/kb/rbd"
)

func chainSystem(t *testing.T) *domain.System {
	t.Helper()
	b := dsl.NewSystem("chain")
	b.Component("S", rbd.ClassSource, nil)
	b.Component("T", rbd.ClassTarget, nil)
	b.AutoConnect("S", "T")
	b.Indicator("supply", "T", "is_ok_fed_in", domain.StatMean)
	sys, err := b.Build()
	require.NoError(t, err)
	return sys
}

func TestSimulator_RunWithStore(t *testing.T) {
	store := memory.NewStore()
	sim := sluice.New(sluice.WithStore(store))

	c, err := sim.Run(context.Background(), chainSystem(t), domain.SimulationConfig{
		Runs:     2,
		Schedule: []domain.SchedulePhase{{Start: 0, End: 10, NValues: 3}},
	})
	require.NoError(t, err)

	loaded, err := store.LoadCampaign(context.Background(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, c.ID, loaded.ID)
	assert.Equal(t, "chain", loaded.System)

	ind, err := loaded.Indicator("supply")
	require.NoError(t, err)
	assert.Equal(t, 2, ind.N)
	for _, s := range ind.Mean()[0].Samples {
		assert.Equal(t, 1.0, s.Value)
	}
}

func TestSimulator_FailedRunSavesNothing(t *testing.T) {
	store := memory.NewStore()
	sim := sluice.New(sluice.WithStore(store))

	_, err := sim.Run(context.Background(), chainSystem(t), domain.SimulationConfig{Runs: 0})
	var cfg *domain.ConfigError
	require.ErrorAs(t, err, &cfg)

	ids, err := store.ListCampaigns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLoad_File(t *testing.T) {
	raw := `
name: plant
components:
  - name: GRID
    class: Source
  - name: PLANT
    class: Target
connections:
  - src: GRID
    dst: PLANT
indicators:
  - name: supply
    component: PLANT
    variable: is_ok_fed_in
`
	path := filepath.Join(t.TempDir(), "plant.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	sys, err := sluice.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "plant", sys.Name)
	assert.Len(t, sys.Components, 2)
	require.Len(t, sys.Connections, 1)
	assert.Equal(t, "GRID", sys.Connections[0].Src)

	_, err = sluice.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	sys, err := sluice.Parse([]byte("name: tiny\ncomponents:\n  - name: S\n    class: Source\n"))
	require.NoError(t, err)
	assert.Equal(t, "tiny", sys.Name)

	_, err = sluice.Parse([]byte("name: [broken"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, sluice.Validate(chainSystem(t)))

	b := dsl.NewSystem("loop")
	b.Component("B1", rbd.ClassBlock, nil)
	b.Component("B2", rbd.ClassBlock, nil)
	b.ConnectFlow("B1", "B2", "is_ok")
	b.ConnectFlow("B2", "B1", "is_ok")
	sys, err := b.Build()
	require.NoError(t, err)

	err = sluice.Validate(sys)
	var cfg *domain.ConfigError
	require.ErrorAs(t, err, &cfg)
	assert.Contains(t, err.Error(), "cycle")
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, strings.TrimSpace(sluice.Version))
}
