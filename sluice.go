package sluice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/sluice/internal/engine"
	"github.com/aretw0/sluice/pkg/adapters/yamlcfg"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/results"
	"github.com/aretw0/sluice/pkg/runner"

	// Register the built-in component classes with the default registry.
	_ "github.com/aretw0/sluice/pkg/kb/rbd"
)

// Simulator is the high-level entry point for the sluice library. It wraps
// the campaign runner and optionally persists finished campaigns to a result
// store.
type Simulator struct {
	runner runner.Runner
	store  ports.ResultStore
}

// Option defines a functional option for configuring the Simulator.
type Option func(*Simulator)

// WithLogger sets a custom structured logger for run diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.runner.Logger = logger
	}
}

// WithHooks registers observability hooks. Callbacks run on worker
// goroutines and must be safe for concurrent use.
func WithHooks(hooks domain.SimulationHooks) Option {
	return func(s *Simulator) {
		s.runner.Hooks = hooks
	}
}

// WithWorkers bounds parallel run execution. Zero keeps one worker per CPU;
// the config's Workers field takes precedence when set.
func WithWorkers(n int) Option {
	return func(s *Simulator) {
		s.runner.Workers = n
	}
}

// WithStore persists every finished campaign to the given store.
func WithStore(store ports.ResultStore) Option {
	return func(s *Simulator) {
		s.store = store
	}
}

// New initializes a Simulator.
func New(opts ...Option) *Simulator {
	sim := &Simulator{}
	for _, opt := range opts {
		opt(sim)
	}
	return sim
}

// Run executes a campaign of independent runs over the system and returns
// the merged results. When a store is configured, the campaign is saved
// before returning.
func (s *Simulator) Run(ctx context.Context, sys *domain.System, cfg domain.SimulationConfig) (*results.Campaign, error) {
	campaign, err := s.runner.Run(ctx, sys, cfg)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		if err := s.store.SaveCampaign(ctx, campaign); err != nil {
			return nil, fmt.Errorf("save campaign %s: %w", campaign.ID, err)
		}
	}
	return campaign, nil
}

// Load reads a model from a YAML file or a directory of YAML files,
// resolving component classes against the default registry.
func Load(path string) (*domain.System, error) {
	return yamlcfg.NewLoader(path).Load(context.Background())
}

// Parse builds a model from a single YAML document.
func Parse(raw []byte) (*domain.System, error) {
	return yamlcfg.Parse(raw)
}

// Validate compiles the system without running it, surfacing every
// declaration error eagerly: unknown references, invalid connections,
// same-flow cycles, bad patterns.
func Validate(sys *domain.System) error {
	_, err := engine.Compile(sys)
	return err
}
