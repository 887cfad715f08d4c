package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/sluice/pkg/domain"
)

// Loader implements ports.SystemLoader for a system already built in memory,
// typically through the builder DSL. It keeps embedders and tests independent
// of the filesystem.
type Loader struct {
	sys *domain.System
}

// NewLoader wraps an already built system.
func NewLoader(sys *domain.System) *Loader {
	return &Loader{sys: sys}
}

// Load returns the wrapped system.
func (l *Loader) Load(ctx context.Context) (*domain.System, error) {
	if l.sys == nil {
		return nil, fmt.Errorf("memory loader holds no system")
	}
	return l.sys, nil
}
