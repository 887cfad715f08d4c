package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/internal/presentation/report"
	"github.com/aretw0/sluice/internal/presentation/tui"
	"github.com/aretw0/sluice/pkg/domain"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	ModelPath string
	Runs      int
	End       float64
	NValues   int
	Seed      uint64
	Workers   int
	Store     string
	JSON      bool
	Quiet     bool
	Debug     bool
}

// Execute handles the run command logic: load the model, run the campaign,
// print the report or the raw campaign JSON.
func Execute(opts RunOptions) error {
	logger := createLogger(opts.Debug)

	if !opts.JSON && !opts.Quiet {
		tui.PrintBanner(sluice.Version)
	}

	sys, err := sluice.Load(opts.ModelPath)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	store, closeStore, err := OpenStore(opts.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	simOpts := []sluice.Option{
		sluice.WithLogger(logger),
		sluice.WithWorkers(opts.Workers),
	}
	if store != nil {
		simOpts = append(simOpts, sluice.WithStore(store))
	}
	sim := sluice.New(simOpts...)

	cfg := domain.SimulationConfig{
		Runs:     opts.Runs,
		Schedule: []domain.SchedulePhase{{Start: 0, End: opts.End, NValues: opts.NValues}},
		Seed:     opts.Seed,
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	campaign, err := sim.Run(sigCtx, sys, cfg)
	if err != nil {
		if isInterrupted(err) && sigCtx.Signal() != nil && !opts.JSON && !opts.Quiet {
			fmt.Printf("\n")
			printSystemMessage("Campaign interrupted.")
		}
		return handleExecutionError(err)
	}

	switch {
	case opts.JSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(campaign)
	case opts.Quiet:
		printSystemMessage("Campaign %s finished: %d runs.", campaign.ID, len(campaign.Runs))
	default:
		fmt.Print(report.Render(report.Markdown(campaign)))
		if opts.Store != "" {
			printSystemMessage("Campaign %s saved to %s.", campaign.ID, opts.Store)
		}
	}
	return nil
}
