/*
Package domain contains the core domain model for the Sluice engine.

It defines the entities a flow network is built from: Components with their
input and output Flows, the boolean VariableSet each component exposes,
stochastic Automata with occurrence laws and effects, the System aggregate
with its connection graph, and the Indicator/Target declarations consumed by
simulations. This package is kept pure and free of external dependencies like
I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Component: a named node owning flow declarations and automata.
  - FlowIn / FlowOut: per-flow boolean state bundles (production, availability,
    fed status) plus aggregation logic.
  - Automaton: a finite-state failure or trigger process with condition-gated
    transitions and occurrence laws (fixed delay or exponential rate).
  - System: the component set plus the directed connection graph.
  - Indicator / Target: cross-run statistic requests and early-stop conditions.
*/
package domain
