package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/internal/engine"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/dsl"
	"github.com/aretw0/sluice/pkg/kb/rbd"
)

// chainModel compiles S1 -> B1 -> T1 on is_ok, with the given failure params
// attached to B1.
func chainModel(t *testing.T, failures []map[string]any) *engine.Model {
	t.Helper()
	b := dsl.NewSystem("chain")
	b.Component("S1", rbd.ClassSource, nil)
	params := dsl.Params{}
	if failures != nil {
		params["failures"] = failures
	}
	b.Component("B1", rbd.ClassBlock, params)
	b.Component("T1", rbd.ClassTarget, nil)
	b.AutoConnect("S1", "B1")
	b.AutoConnect("B1", "T1")

	sys, err := b.Build()
	require.NoError(t, err)
	m, err := engine.Compile(sys)
	require.NoError(t, err)
	return m
}

func TestEngine_NominalChain(t *testing.T) {
	m := chainModel(t, nil)
	e := engine.New(m, 0, 1)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx))

	for _, comp := range []string{"S1", "B1"} {
		v, err := e.Value(comp, "is_ok_fed_out")
		require.NoError(t, err)
		assert.True(t, v, "%s fed_out", comp)
	}
	fed, err := e.Value("T1", "is_ok_fed_in")
	require.NoError(t, err)
	assert.True(t, fed)

	// No automata: nothing to fire.
	assert.Empty(t, e.Fireable())
	fired, err := e.StepForward(ctx)
	require.NoError(t, err)
	assert.Nil(t, fired)
}

func TestEngine_FailureWindow(t *testing.T) {
	m := chainModel(t, []map[string]any{{
		"name":         "fm",
		"kind":         "delay",
		"failure_time": 4,
		"repair_time":  2,
	}})
	e := engine.New(m, 0, 1)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	fedAt := func(at float64) bool {
		require.NoError(t, e.Goto(ctx, at))
		v, err := e.Value("T1", "is_ok_fed_in")
		require.NoError(t, err)
		return v
	}

	// Failed on [4,6), repaired on [6,10), failed again on [10,12).
	assert.True(t, fedAt(3))
	assert.False(t, fedAt(4), "failure applies at its instant")
	assert.False(t, fedAt(5.5))
	assert.True(t, fedAt(6), "repair applies at its instant")
	assert.True(t, fedAt(9))
	assert.False(t, fedAt(10))
	assert.True(t, fedAt(12))

	st, err := e.State("B1", "fm")
	require.NoError(t, err)
	assert.Equal(t, "fm_rep", st)
}

func TestEngine_ValueErrors(t *testing.T) {
	m := chainModel(t, nil)
	e := engine.New(m, 0, 1)

	_, err := e.Value("T1", "is_ok_fed_in")
	assert.Error(t, err, "reads before Start are rejected")

	require.NoError(t, e.Start(context.Background()))

	_, err = e.Value("nope", "is_ok_fed_in")
	assert.ErrorIs(t, err, domain.ErrUnknownComponent)
	_, err = e.Value("T1", "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownVariable)
	_, err = e.State("T1", "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownAutomaton)
}

func TestEngine_StopFreezes(t *testing.T) {
	m := chainModel(t, []map[string]any{{
		"name":         "fm",
		"kind":         "delay",
		"failure_time": 4,
		"repair_time":  2,
	}})
	e := engine.New(m, 0, 1)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	e.Stop(ctx)
	assert.True(t, e.Frozen())
	_, err := e.StepForward(ctx)
	assert.ErrorIs(t, err, domain.ErrRunFrozen)

	// Sampling a frozen run still advances the clock.
	require.NoError(t, e.Goto(ctx, 10))
	v, err := e.Value("T1", "is_ok_fed_in")
	require.NoError(t, err)
	assert.True(t, v, "no failure fired after freeze")
}

func TestEngine_TargetStopsRun(t *testing.T) {
	b := dsl.NewSystem("chain")
	b.Component("S1", rbd.ClassSource, nil)
	b.Component("B1", rbd.ClassBlock, dsl.Params{"failures": []map[string]any{{
		"name":         "fm",
		"kind":         "delay",
		"failure_time": 4,
		"repair_time":  2,
	}}})
	b.Component("T1", rbd.ClassTarget, nil)
	b.AutoConnect("S1", "B1")
	b.AutoConnect("B1", "T1")
	b.Target(domain.NewVarTarget("starved", "T1", "is_ok_fed_in", false))

	sys, err := b.Build()
	require.NoError(t, err)
	m, err := engine.Compile(sys)
	require.NoError(t, err)

	var reachedAt float64 = -1
	e := engine.New(m, 0, 1, engine.WithHooks(domain.SimulationHooks{
		OnTargetReached: func(_ context.Context, ev *domain.TargetEvent) {
			reachedAt = ev.Time
		},
	}))
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))
	require.NoError(t, e.Goto(ctx, 24))

	assert.Equal(t, []string{"starved"}, e.ReachedTargets())
	assert.Equal(t, 4.0, reachedAt)
	assert.True(t, e.Frozen())
	assert.Equal(t, 4.0, e.FrozenAt())

	// The repair at t=6 never fired: the run froze at the target.
	v, err := e.Value("T1", "is_ok_fed_in")
	require.NoError(t, err)
	assert.False(t, v)
	assert.Equal(t, 24.0, e.Now())
}

func TestEngine_FIFOTieBreak(t *testing.T) {
	b := dsl.NewSystem("ties")
	b.Custom("C1").
		FlowOut("sig", domain.ProducesByDefault()).
		Automaton(&domain.Automaton{
			Name:   "a",
			States: []string{"idle", "done"},
			Transitions: []domain.Transition{{
				Name: "a_go", From: "idle", To: "done",
				Law:     domain.DelayLaw(5),
				Effects: []domain.Effect{{Var: "sig_prod", Value: false}},
			}},
		}).
		Automaton(&domain.Automaton{
			Name:   "b",
			States: []string{"idle", "done"},
			Transitions: []domain.Transition{{
				Name: "b_go", From: "idle", To: "done",
				Law:     domain.DelayLaw(5),
				Effects: []domain.Effect{{Var: "sig_prod", Value: true}},
			}},
		})

	sys, err := b.Build()
	require.NoError(t, err)
	m, err := engine.Compile(sys)
	require.NoError(t, err)

	e := engine.New(m, 0, 1)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	first, err := e.StepForward(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "a_go", first.Transition, "armed first fires first")
	assert.Equal(t, 5.0, first.Time)

	second, err := e.StepForward(ctx)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "b_go", second.Transition)
	assert.Equal(t, 5.0, second.Time)

	// The later firing decided the value.
	v, err := e.Value("C1", "sig_prod")
	require.NoError(t, err)
	assert.True(t, v)
}

func TestEngine_Reproducibility(t *testing.T) {
	b := dsl.NewSystem("mc")
	b.Component("S1", rbd.ClassSource, nil)
	b.Component("B1", rbd.ClassBlock, dsl.Params{"failures": []map[string]any{{
		"name":         "fm",
		"kind":         "exp",
		"failure_rate": 0.2,
		"repair_rate":  0.5,
	}}})
	b.Component("T1", rbd.ClassTarget, nil)
	b.AutoConnect("S1", "B1")
	b.AutoConnect("B1", "T1")
	b.MonitorTransitions(".*")

	sys, err := b.Build()
	require.NoError(t, err)
	m, err := engine.Compile(sys)
	require.NoError(t, err)

	ctx := context.Background()
	runOnce := func(run int, seed uint64) []domain.FiredTransition {
		e := engine.New(m, run, seed)
		require.NoError(t, e.Start(ctx))
		require.NoError(t, e.Goto(ctx, 100))
		return e.Sequence()
	}

	first := runOnce(3, 42)
	require.NotEmpty(t, first, "rate 0.2 over 100 time units fires with near certainty")
	assert.Equal(t, first, runOnce(3, 42), "same (seed, run) replays exactly")
}

func TestEngine_ZeroRateNeverFires(t *testing.T) {
	m := chainModel(t, []map[string]any{{
		"name":         "fm",
		"kind":         "exp",
		"failure_rate": 0,
		"repair_rate":  0,
	}})
	e := engine.New(m, 0, 1)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	assert.Empty(t, e.Fireable(), "zero-rate transition is never armed")
	require.NoError(t, e.Goto(ctx, 1000))
	v, err := e.Value("T1", "is_ok_fed_in")
	require.NoError(t, err)
	assert.True(t, v)
}
