package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/sluice/internal/engine"
	"github.com/aretw0/sluice/internal/logging"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/results"
)

// Runner executes simulation campaigns. The zero value runs with one worker
// per CPU and no hooks.
type Runner struct {
	// Workers bounds parallel run execution. Zero means one worker per
	// CPU; cfg.Workers takes precedence when set.
	Workers int

	// Hooks receive run lifecycle and transition events. Callbacks run on
	// worker goroutines and must be safe for concurrent use.
	Hooks domain.SimulationHooks

	// Logger is used for run diagnostics. If nil, logs are discarded.
	Logger *slog.Logger
}

// Run compiles the system and executes cfg.Runs independent runs, returning
// the merged campaign. A failed run (for example a propagation
// inconsistency) discards the whole campaign: partial statistics are never
// returned.
func (r *Runner) Run(ctx context.Context, sys *domain.System, cfg domain.SimulationConfig) (*results.Campaign, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := engine.Compile(sys)
	if err != nil {
		return nil, err
	}
	return r.RunModel(ctx, m, cfg)
}

// RunModel executes a campaign over an already compiled model.
func (r *Runner) RunModel(ctx context.Context, m *engine.Model, cfg domain.SimulationConfig) (*results.Campaign, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := r.Logger
	if log == nil {
		log = logging.NewNop()
	}

	campaign := results.NewCampaign(m.System.Name, cfg)
	var pairs []engine.IndicatorPair
	seen := make(map[string]bool)
	for _, b := range m.Indicators() {
		keys := make([]string, 0, len(b.Pairs))
		for _, p := range b.Pairs {
			keys = append(keys, p.Key)
			if !seen[p.Key] {
				seen[p.Key] = true
				pairs = append(pairs, p)
			}
		}
		campaign.AddIndicator(b.Indicator.Name, b.Indicator.Stats, keys)
	}
	points := cfg.SamplePoints()

	workers := cfg.Workers
	if workers <= 0 {
		workers = r.Workers
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log.Info("starting campaign",
		"campaign", campaign.ID,
		"system", m.System.Name,
		"runs", cfg.Runs,
		"seed", cfg.Seed,
		"workers", workers)

	// The collector keeps draining after a merge error so no worker ever
	// blocks on the channel.
	out := make(chan *results.RunResult, workers)
	collectErr := make(chan error, 1)
	go func() {
		var cerr error
		for rr := range out {
			if cerr == nil {
				cerr = campaign.Merge(rr)
			}
		}
		collectErr <- cerr
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for run := 0; run < cfg.Runs && gctx.Err() == nil; run++ {
		g.Go(func() error {
			rr, err := r.runOne(gctx, m, run, cfg, points, pairs, log)
			if err != nil {
				return err
			}
			select {
			case out <- rr:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	err := g.Wait()
	close(out)
	if cerr := <-collectErr; err == nil {
		err = cerr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	campaign.SortRuns()
	log.Info("campaign finished", "campaign", campaign.ID, "runs", len(campaign.Runs))
	return campaign, nil
}

// runOne executes a single run: start, advance through every sample point
// reading the observed pairs, stop.
func (r *Runner) runOne(ctx context.Context, m *engine.Model, run int, cfg domain.SimulationConfig, points []float64, pairs []engine.IndicatorPair, log *slog.Logger) (*results.RunResult, error) {
	e := engine.New(m, run, cfg.Seed,
		engine.WithHooks(r.Hooks),
		engine.WithLogger(log))
	if err := e.Start(ctx); err != nil {
		return nil, fmt.Errorf("run %d: %w", run, err)
	}
	samples := make(map[string][]float64, len(pairs))
	for _, p := range pairs {
		samples[p.Key] = make([]float64, 0, len(points))
	}
	for _, at := range points {
		if err := e.Goto(ctx, at); err != nil {
			return nil, fmt.Errorf("run %d: %w", run, err)
		}
		for _, p := range pairs {
			v, err := e.Value(p.Component, p.Var)
			if err != nil {
				return nil, fmt.Errorf("run %d: %w", run, err)
			}
			val := 0.0
			if v {
				val = 1
			}
			samples[p.Key] = append(samples[p.Key], val)
		}
	}
	end := e.Now()
	if e.Frozen() {
		end = e.FrozenAt()
	}
	e.Stop(ctx)
	return &results.RunResult{
		Record: results.RunRecord{
			Run:            run,
			Seed:           cfg.Seed,
			End:            end,
			ReachedTargets: e.ReachedTargets(),
			Sequence:       e.Sequence(),
		},
		Samples: samples,
	}, nil
}
