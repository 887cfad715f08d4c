package yamlcfg_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/pkg/adapters/yamlcfg"
	"github.com/aretw0/sluice/pkg/domain"
	_ "github.com/aretw0/sluice/pkg/kb/rbd"
	"github.com/aretw0/sluice/pkg/ports"
)

var _ ports.SystemLoader = (*yamlcfg.Loader)(nil)

const plantModel = `
name: plant
components:
  - name: GRID
    class: Source
    params:
      failures:
        - {name: fm, kind: exp, failure_rate: 0.001, repair_rate: 0.1}
  - name: DIESEL
    class: SourceTrigger
    params:
      trigger_time_up: 1
  - name: PUMP
    class: Block
  - name: PLANT
    class: Target
    params:
      logic: or
connections:
  - {src: GRID, dst: PUMP}
  - {src: PUMP, dst: PLANT, flow: is_ok}
  - {src: DIESEL, dst: PLANT, flow: is_ok}
  - {src: GRID, dst: DIESEL, flow: is_ok, trigger: true}
indicators:
  - {name: supply, component: PLANT, variable: is_ok_fed_in, stats: [mean, stddev, p90]}
  - {name: feeds, variable: is_ok_fed_out}
targets:
  - {name: starved, component: PLANT, variable: is_ok_fed_in}
  - {name: grid_lost, component: GRID, automaton: fm, state: fm_occ}
monitor: ["GRID\\..*"]
`

func writeModel(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_File(t *testing.T) {
	path := writeModel(t, "plant.yaml", plantModel)

	sys, err := yamlcfg.NewLoader(path).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "plant", sys.Name)
	require.Len(t, sys.Components, 4)
	grid, ok := sys.Component("GRID")
	require.True(t, ok)
	assert.Equal(t, "Source", grid.Class)

	require.Len(t, sys.Connections, 4)
	assert.Contains(t, sys.Connections, domain.Connection{
		Src: "GRID", SrcFlow: "is_ok", Dst: "DIESEL", DstFlow: "is_ok_trigger",
	})

	require.Len(t, sys.Indicators, 2)
	assert.Equal(t, []domain.Stat{domain.StatMean, domain.StatStddev, domain.StatP90}, sys.Indicators[0].Stats)
	assert.Equal(t, domain.SelectAll, sys.Indicators[1].Selector, "component defaults to match-all")
	assert.Equal(t, []domain.Stat{domain.StatMean}, sys.Indicators[1].Stats, "stats default to mean")

	require.Len(t, sys.Targets, 2)
	assert.Equal(t, domain.TargetVar, sys.Targets[0].Kind)
	assert.False(t, sys.Targets[0].Value, "value defaults to false")
	assert.Equal(t, domain.TargetState, sys.Targets[1].Kind)

	assert.Equal(t, []string{`GRID\..*`}, sys.Monitors)
}

func TestLoader_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10-components.yaml"), []byte(`
name: split
components:
  - {name: S1, class: Source}
  - {name: T1, class: Target}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20-wiring.yml"), []byte(`
connections:
  - {src: S1, dst: T1, flow: is_ok}
indicators:
  - {name: supply, component: T1, variable: is_ok_fed_in}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	sys, err := yamlcfg.NewLoader(dir).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "split", sys.Name)
	assert.Len(t, sys.Components, 2)
	assert.Len(t, sys.Connections, 1)
	assert.Len(t, sys.Indicators, 1)
}

func TestLoader_DirectoryNameConflict(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: one"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("name: two"), 0o644))

	_, err := yamlcfg.NewLoader(dir).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts")
}

func TestLoader_Errors(t *testing.T) {
	cases := []struct {
		name  string
		model string
		want  string
	}{
		{
			name:  "unknown key",
			model: "name: x\nbogus_key: 1\n",
			want:  "bogus_key",
		},
		{
			name:  "missing name",
			model: "components:\n  - {name: S1, class: Source}\n",
			want:  "no name",
		},
		{
			name:  "missing class",
			model: "name: x\ncomponents:\n  - {name: S1}\n",
			want:  "missing class",
		},
		{
			name:  "unknown class",
			model: "name: x\ncomponents:\n  - {name: S1, class: Reactor}\n",
			want:  "Reactor",
		},
		{
			name:  "unknown stat",
			model: "name: x\ncomponents:\n  - {name: S1, class: Source}\nindicators:\n  - {name: i, variable: is_ok_fed_out, stats: [median]}\n",
			want:  "median",
		},
		{
			name:  "trigger without flow",
			model: "name: x\ncomponents:\n  - {name: S1, class: Source}\n  - {name: S2, class: SourceTrigger}\nconnections:\n  - {src: S1, dst: S2, trigger: true}\n",
			want:  "needs a flow",
		},
		{
			name:  "half port pair",
			model: "name: x\ncomponents:\n  - {name: S1, class: Source}\n  - {name: T1, class: Target}\nconnections:\n  - {src: S1, src_port: is_ok_out, dst: T1}\n",
			want:  "go together",
		},
		{
			name:  "target without condition",
			model: "name: x\ncomponents:\n  - {name: S1, class: Source}\ntargets:\n  - {name: t, component: S1}\n",
			want:  "variable or automaton",
		},
		{
			name:  "empty file",
			model: "",
			want:  "empty",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeModel(t, "model.yaml", tc.model)
			_, err := yamlcfg.NewLoader(path).Load(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoader_MissingPath(t *testing.T) {
	_, err := yamlcfg.NewLoader(filepath.Join(t.TempDir(), "absent.yaml")).Load(context.Background())
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	sys, err := yamlcfg.Parse([]byte(plantModel))
	require.NoError(t, err)
	assert.Equal(t, "plant", sys.Name)
	assert.Len(t, sys.Components, 4)
}
