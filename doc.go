/*
Package sluice is a discrete-event Monte Carlo engine for boolean
flow-propagation models: components produce and consume boolean flows through
a connection graph, stochastic automata (failures, repairs, triggers) rewire
production over time, and campaigns of independent runs fold sampled
indicators into cross-run statistics.

# Concept

Sluice treats a system as inert data: components declare input and output
flows, automata declare condition-gated transitions with deterministic or
exponential occurrence laws, and connections wire producer outputs to
consumer inputs. The engine compiles that declaration once, then executes
reproducible runs: every state change propagates through the flow graph to a
fixed point, targets can freeze a run early, and each run draws from its own
seeded random stream so campaigns are independent of execution order and
worker count. This keeps the model portable across interfaces: library, CLI,
HTTP server or MCP tool host.

# Key Features

  - Reproducible stochastics: run i of a campaign with seed s always replays
    the same trajectory, serial or parallel.
  - Eager validation: unknown flows, bad connections and same-flow cycles
    surface at build time, not mid-campaign.
  - Boolean flow semantics: AND/OR input aggregation, production conditions
    in conjunctive normal form, availability dominating explicit production.
  - Pluggable persistence: campaign results save to memory, Redis or SQLite
    stores behind one interface.

# Usage

Build a model with the dsl package (or load YAML with Load), then run a
campaign:

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/sluice"
		"github.com/aretw0/sluice/pkg/domain"
		"github.com/aretw0/sluice/pkg/dsl"
		"github.com/aretw0/sluice/pkg/kb/rbd"
	)

	func main() {
		b := dsl.NewSystem("plant")
		b.Component("GRID", rbd.ClassSource, dsl.Params{"failures": []map[string]any{
			{"name": "fm", "kind": "exp", "failure_rate": 0.001, "repair_rate": 0.1},
		}})
		b.Component("PLANT", rbd.ClassTarget, nil)
		b.AutoConnect("GRID", "PLANT")
		b.Indicator("supply", "PLANT", "is_ok_fed_in", domain.StatMean)
		sys, err := b.Build()
		if err != nil {
			log.Fatal(err)
		}

		sim := sluice.New()
		campaign, err := sim.Run(context.Background(), sys, domain.SimulationConfig{
			Runs:     1000,
			Seed:     2024,
			Schedule: []domain.SchedulePhase{{Start: 0, End: 8760, NValues: 100}},
		})
		if err != nil {
			log.Fatal(err)
		}

		supply, _ := campaign.Indicator("supply")
		for _, series := range supply.Mean() {
			last := series.Samples[len(series.Samples)-1]
			fmt.Printf("%s mean availability at t=%g: %.4f\n", series.Key, last.Time, last.Value)
		}
	}
*/
package sluice
