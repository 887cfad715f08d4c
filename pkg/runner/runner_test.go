package runner_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/dsl"
	"github.com/aretw0/sluice/pkg/kb/rbd"
	"github.com/aretw0/sluice/pkg/runner"
)

func nominalSystem(t *testing.T) *domain.System {
	t.Helper()
	b := dsl.NewSystem("nominal")
	b.Component("S1", rbd.ClassSource, nil)
	b.Component("B1", rbd.ClassBlock, nil)
	b.Component("T1", rbd.ClassTarget, nil)
	b.AutoConnect("S1", "B1")
	b.AutoConnect("B1", "T1")
	b.Indicator("supply", "T1", "is_ok_fed_in", domain.StatMean)

	sys, err := b.Build()
	require.NoError(t, err)
	return sys
}

func exponentialSystem(t *testing.T) *domain.System {
	t.Helper()
	b := dsl.NewSystem("mc")
	b.Component("S1", rbd.ClassSource, dsl.Params{"failures": []map[string]any{
		{"name": "fm", "kind": "exp", "failure_rate": 0.125, "repair_rate": 0.25},
	}})
	b.Component("T1", rbd.ClassTarget, nil)
	b.AutoConnect("S1", "T1")
	b.Indicator("avail", "S1", "is_ok_fed_available_out", domain.StatMean, domain.StatP90)
	b.MonitorTransitions(".*")

	sys, err := b.Build()
	require.NoError(t, err)
	return sys
}

func TestRunner_DeterministicCampaign(t *testing.T) {
	r := runner.Runner{}
	c, err := r.Run(context.Background(), nominalSystem(t), domain.SimulationConfig{
		Runs:     3,
		Schedule: []domain.SchedulePhase{{Start: 0, End: 24, NValues: 25}},
		Seed:     1,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, c.NbRuns())
	require.Len(t, c.Runs, 3)
	for i, rec := range c.Runs {
		assert.Equal(t, i, rec.Run, "runs sorted by index")
		assert.Equal(t, 24.0, rec.End)
		assert.False(t, rec.ReachedTarget())
	}

	ind, err := c.Indicator("supply")
	require.NoError(t, err)
	assert.Equal(t, 3, ind.N)
	for _, s := range ind.Mean()[0].Samples {
		assert.Equal(t, 1.0, s.Value, "t=%v", s.Time)
	}
}

func TestRunner_ParallelMatchesSerial(t *testing.T) {
	sys := exponentialSystem(t)
	cfg := domain.SimulationConfig{
		Runs:     64,
		Schedule: []domain.SchedulePhase{{Start: 0, End: 50, NValues: 11}},
		Seed:     99,
	}

	serial := runner.Runner{Workers: 1}
	parallel := runner.Runner{Workers: 8}

	cs, err := serial.Run(context.Background(), sys, cfg)
	require.NoError(t, err)
	cp, err := parallel.Run(context.Background(), sys, cfg)
	require.NoError(t, err)

	is, err := cs.Indicator("avail")
	require.NoError(t, err)
	ip, err := cp.Indicator("avail")
	require.NoError(t, err)
	assert.Equal(t, is.Pairs, ip.Pairs, "accumulators independent of scheduling")

	require.Equal(t, len(cs.Runs), len(cp.Runs))
	for i := range cs.Runs {
		assert.Equal(t, cs.Runs[i], cp.Runs[i])
	}
}

func TestRunner_Convergence(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	r := runner.Runner{}
	c, err := r.Run(context.Background(), exponentialSystem(t), domain.SimulationConfig{
		Runs:     2000,
		Schedule: []domain.SchedulePhase{{Start: 0, End: 100, NValues: 2}},
		Seed:     7,
	})
	require.NoError(t, err)

	ind, err := c.Indicator("avail")
	require.NoError(t, err)
	mean := ind.Mean()[0].Samples

	// Steady-state availability is mu/(lambda+mu) = 2/3.
	last := mean[len(mean)-1].Value
	assert.InDelta(t, 2.0/3.0, last, 0.05)

	p90 := ind.P90()[0].Samples
	assert.Less(t, p90[len(p90)-1].Value, 0.03, "half-width shrinks with runs")
}

func TestRunner_TargetStopsRuns(t *testing.T) {
	b := dsl.NewSystem("tgt")
	b.Component("S1", rbd.ClassSource, dsl.Params{"failures": []map[string]any{
		{"name": "fm", "kind": "delay", "failure_time": 4, "repair_time": 2},
	}})
	b.Component("T1", rbd.ClassTarget, nil)
	b.AutoConnect("S1", "T1")
	b.Indicator("supply", "T1", "is_ok_fed_in", domain.StatMean)
	b.Target(domain.NewVarTarget("starved", "T1", "is_ok_fed_in", false))
	sys, err := b.Build()
	require.NoError(t, err)

	r := runner.Runner{}
	c, err := r.Run(context.Background(), sys, domain.SimulationConfig{
		Runs:     5,
		Schedule: []domain.SchedulePhase{{Start: 0, End: 24, NValues: 25}},
		Seed:     1,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"starved": 5}, c.TargetHits())
	for _, rec := range c.Runs {
		assert.Equal(t, 4.0, rec.End, "run froze at the target instant")
		assert.True(t, rec.ReachedTarget())
	}

	// Samples after the freeze keep reading the frozen state.
	ind, err := c.Indicator("supply")
	require.NoError(t, err)
	samples := ind.Mean()[0].Samples
	assert.Equal(t, 1.0, samples[0].Value)
	assert.Equal(t, 0.0, samples[len(samples)-1].Value)
}

func TestRunner_AbortedRunFailsCampaign(t *testing.T) {
	b := dsl.NewSystem("osc")
	b.Custom("A").
		FlowIn("x", domain.LogicOr).
		FlowOut("y", domain.ProducesByDefault(), domain.WithProdCond("x"), domain.Negated())
	b.Custom("B").
		FlowIn("y", domain.LogicOr).
		FlowOut("x", domain.ProducesByDefault(), domain.WithProdCond("y"))
	b.ConnectFlow("A", "B", "y")
	b.ConnectFlow("B", "A", "x")
	sys, err := b.Build()
	require.NoError(t, err)

	r := runner.Runner{Workers: 4}
	c, err := r.Run(context.Background(), sys, domain.SimulationConfig{
		Runs:     10,
		Schedule: []domain.SchedulePhase{{Start: 0, End: 10, NValues: 2}},
		Seed:     1,
	})
	assert.Nil(t, c, "no partial statistics from failed campaigns")
	var inc *domain.InconsistencyError
	assert.ErrorAs(t, err, &inc)
}

func TestRunner_InvalidConfig(t *testing.T) {
	r := runner.Runner{}
	_, err := r.Run(context.Background(), nominalSystem(t), domain.SimulationConfig{Runs: 0})
	var cfg *domain.ConfigError
	assert.ErrorAs(t, err, &cfg)
}

func TestRunner_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := runner.Runner{}
	_, err := r.Run(ctx, exponentialSystem(t), domain.SimulationConfig{
		Runs:     100,
		Schedule: []domain.SchedulePhase{{Start: 0, End: 50, NValues: 11}},
		Seed:     1,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_Hooks(t *testing.T) {
	var starts, ends, transitions atomic.Int64
	r := runner.Runner{
		Workers: 4,
		Hooks: domain.SimulationHooks{
			OnRunStart: func(_ context.Context, _ *domain.RunEvent) { starts.Add(1) },
			OnRunEnd:   func(_ context.Context, _ *domain.RunEvent) { ends.Add(1) },
			OnTransitionFired: func(_ context.Context, _ *domain.TransitionEvent) {
				transitions.Add(1)
			},
		},
	}
	c, err := r.Run(context.Background(), exponentialSystem(t), domain.SimulationConfig{
		Runs:     20,
		Schedule: []domain.SchedulePhase{{Start: 0, End: 50, NValues: 6}},
		Seed:     3,
	})
	require.NoError(t, err)

	assert.EqualValues(t, 20, starts.Load())
	assert.EqualValues(t, 20, ends.Load())
	assert.Positive(t, transitions.Load())

	var monitored int
	for _, rec := range c.Runs {
		monitored += len(rec.Sequence)
	}
	assert.EqualValues(t, monitored, transitions.Load(), "hook fires once per firing; monitor captures all")
}
