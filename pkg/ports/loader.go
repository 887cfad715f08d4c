package ports

import (
	"context"

	"github.com/aretw0/sluice/pkg/domain"
)

// SystemLoader defines how a system model is retrieved. This keeps the
// definition source (YAML file, embedded config, remote catalog) decoupled
// from building and simulation.
type SystemLoader interface {
	// Load builds the system. Implementations validate eagerly: a loader
	// never returns a system that would fail to compile for declaration
	// reasons it can detect.
	Load(ctx context.Context) (*domain.System, error)
}

// SystemLoaderFunc adapts a function to the SystemLoader interface.
type SystemLoaderFunc func(ctx context.Context) (*domain.System, error)

// Load implements SystemLoader.
func (f SystemLoaderFunc) Load(ctx context.Context) (*domain.System, error) {
	return f(ctx)
}
