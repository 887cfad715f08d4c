/*
Package ports defines the driven ports (interfaces) for the sluice engine.

These interfaces decouple the simulation core from external implementations,
allowing campaigns to load models and persist results through interchangeable
backends.

# Key Interfaces

  - SystemLoader: loads a system model definition (e.g., from YAML or memory).
  - ResultStore: persists and retrieves campaign results.
  - DistributedLocker: coordinates concurrent access to interactive sessions
    across replicas.

RunResultStoreContract is the behavioral test suite every ResultStore
implementation must pass.
*/
package ports
