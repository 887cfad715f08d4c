// Package yamlcfg loads simulation models from YAML files. A model is a
// SystemConfig document naming components by registered class, connections,
// indicators and targets; the loader assembles it through the builder so the
// same eager validation applies as for systems built in code.
package yamlcfg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/dsl"
	"github.com/aretw0/sluice/pkg/registry"
)

// Loader implements ports.SystemLoader for a model file or a directory of
// model files. Directory loads merge every .yaml/.yml file in name order.
type Loader struct {
	Path     string
	registry *registry.Registry
}

// Option adjusts a Loader.
type Option func(*Loader)

// WithRegistry resolves component classes against r instead of
// registry.Default.
func WithRegistry(r *registry.Registry) Option {
	return func(l *Loader) { l.registry = r }
}

// NewLoader creates a loader for the given path.
func NewLoader(path string, opts ...Option) *Loader {
	l := &Loader{
		Path:     path,
		registry: registry.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads, decodes and builds the system.
func (l *Loader) Load(ctx context.Context) (*domain.System, error) {
	cfg, err := l.readConfig()
	if err != nil {
		return nil, err
	}
	return buildSystem(cfg, l.registry)
}

func (l *Loader) readConfig() (SystemConfig, error) {
	var cfg SystemConfig

	info, err := os.Stat(l.Path)
	if err != nil {
		return cfg, fmt.Errorf("model path: %w", err)
	}
	if !info.IsDir() {
		raw, err := os.ReadFile(l.Path)
		if err != nil {
			return cfg, fmt.Errorf("read model: %w", err)
		}
		cfg, err = decodeConfig(raw)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", l.Path, err)
		}
		return cfg, nil
	}

	entries, err := os.ReadDir(l.Path)
	if err != nil {
		return cfg, fmt.Errorf("read model dir: %w", err)
	}
	found := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		found++
		path := filepath.Join(l.Path, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read model: %w", err)
		}
		part, err := decodeConfig(raw)
		if err != nil {
			if errors.Is(err, io.EOF) {
				continue
			}
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
		if err := cfg.merge(part, entry.Name()); err != nil {
			return cfg, err
		}
	}
	if found == 0 {
		return cfg, domain.NewConfigError("yaml", "no model files in %s", l.Path)
	}
	return cfg, nil
}

// Parse decodes and builds a single model document against the default
// registry.
func Parse(raw []byte) (*domain.System, error) {
	cfg, err := decodeConfig(raw)
	if err != nil {
		return nil, err
	}
	return buildSystem(cfg, registry.Default())
}

// decodeConfig decodes one YAML document strictly: unknown keys are errors,
// so config typos surface instead of being dropped.
func decodeConfig(raw []byte) (SystemConfig, error) {
	var cfg SystemConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("model file is empty: %w", err)
		}
		return cfg, domain.NewConfigError("yaml", "decode model: %v", err)
	}
	return cfg, nil
}

// buildSystem assembles the config through the builder, so declaration order
// and eager validation match systems built in code.
func buildSystem(cfg SystemConfig, reg *registry.Registry) (*domain.System, error) {
	if cfg.Name == "" {
		return nil, domain.NewConfigError("yaml", "model has no name")
	}
	b := dsl.NewSystem(cfg.Name, dsl.WithRegistry(reg))

	for _, cc := range cfg.Components {
		if cc.Name == "" {
			return nil, domain.NewConfigError("yaml", "component missing name")
		}
		if cc.Class == "" {
			return nil, domain.NewConfigError("yaml", "component %q missing class", cc.Name)
		}
		b.Component(cc.Name, cc.Class, dsl.Params(cc.Params))
	}

	for _, conn := range cfg.Connections {
		if conn.Src == "" || conn.Dst == "" {
			return nil, domain.NewConfigError("yaml", "connection needs src and dst")
		}
		switch {
		case conn.SrcPort != "" || conn.DstPort != "":
			if conn.SrcPort == "" || conn.DstPort == "" {
				return nil, domain.NewConfigError("yaml", "connection %s -> %s: src_port and dst_port go together", conn.Src, conn.Dst)
			}
			b.Connect(conn.Src, conn.SrcPort, conn.Dst, conn.DstPort)
		case conn.Trigger:
			if conn.Flow == "" {
				return nil, domain.NewConfigError("yaml", "trigger connection %s -> %s needs a flow", conn.Src, conn.Dst)
			}
			b.ConnectTrigger(conn.Src, conn.Dst, conn.Flow)
		case conn.Flow != "":
			b.ConnectFlow(conn.Src, conn.Dst, conn.Flow)
		default:
			b.AutoConnect(conn.Src, conn.Dst)
		}
	}

	for _, ic := range cfg.Indicators {
		if ic.Name == "" {
			return nil, domain.NewConfigError("yaml", "indicator missing name")
		}
		if ic.Variable == "" {
			return nil, domain.NewConfigError("yaml", "indicator %q missing variable", ic.Name)
		}
		stats, err := parseStats(ic.Name, ic.Stats)
		if err != nil {
			return nil, err
		}
		selector := ic.Component
		if selector == "" {
			selector = domain.SelectAll
		}
		b.Indicator(ic.Name, selector, ic.Variable, stats...)
	}

	for _, tc := range cfg.Targets {
		t, err := tc.toDomain()
		if err != nil {
			return nil, err
		}
		b.Target(t)
	}

	if len(cfg.Monitor) > 0 {
		b.MonitorTransitions(cfg.Monitor...)
	}

	return b.Build()
}
