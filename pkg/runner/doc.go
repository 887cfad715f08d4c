/*
Package runner executes Monte Carlo campaigns: N independent runs of one
compiled system, sampled on a schedule and folded into cross-run statistics.

Runs are embarrassingly parallel. Each run draws from a random stream keyed
(seed, run index), so results are identical whatever the worker count or
completion order. Workers produce one RunResult each; a single collector
merges them into the campaign, keeping the accumulation lock-free.

# Usage

	r := runner.Runner{Workers: 8}
	campaign, err := r.Run(ctx, sys, domain.SimulationConfig{
		Runs:     10000,
		Schedule: []domain.SchedulePhase{{Start: 0, End: 24, NValues: 25}},
		Seed:     42,
	})
	if err != nil {
		log.Fatal(err)
	}
*/
package runner
