package yamlcfg

import (
	"github.com/aretw0/sluice/pkg/domain"
)

// SystemConfig is the YAML shape of a model file. A directory of model files
// merges into one config: components, connections, indicators and targets
// append in file order, the system name must agree across files.
type SystemConfig struct {
	Name        string             `yaml:"name"`
	Components  []ComponentConfig  `yaml:"components"`
	Connections []ConnectionConfig `yaml:"connections"`
	Indicators  []IndicatorConfig  `yaml:"indicators"`
	Targets     []TargetConfig     `yaml:"targets"`
	// Monitor lists transition-ID patterns recorded into run sequences.
	Monitor []string `yaml:"monitor"`
}

// ComponentConfig declares one component from a registered class. Params are
// passed to the class factory untouched.
type ComponentConfig struct {
	Name   string         `yaml:"name"`
	Class  string         `yaml:"class"`
	Params map[string]any `yaml:"params"`
}

// ConnectionConfig declares one edge. The variant is inferred from the set
// fields: explicit ports use a raw port connection, trigger wires the flow
// into the destination's trigger input, a bare flow connects that flow, and
// none of the three auto-connects every shared flow between the matching
// components (src and dst are then anchored patterns).
type ConnectionConfig struct {
	Src     string `yaml:"src"`
	SrcPort string `yaml:"src_port,omitempty"`
	Dst     string `yaml:"dst"`
	DstPort string `yaml:"dst_port,omitempty"`
	Flow    string `yaml:"flow,omitempty"`
	Trigger bool   `yaml:"trigger,omitempty"`
}

// IndicatorConfig declares one observed variable. Component defaults to
// matching every component exposing the variable; stats default to mean.
type IndicatorConfig struct {
	Name      string   `yaml:"name"`
	Component string   `yaml:"component,omitempty"`
	Variable  string   `yaml:"variable"`
	Stats     []string `yaml:"stats,omitempty"`
}

// TargetConfig declares one early-stop condition. Setting state selects a
// state target (automaton required); otherwise variable selects a var target
// compared against value, which defaults to false.
type TargetConfig struct {
	Name      string `yaml:"name"`
	Component string `yaml:"component"`
	Variable  string `yaml:"variable,omitempty"`
	Value     bool   `yaml:"value,omitempty"`
	Automaton string `yaml:"automaton,omitempty"`
	State     string `yaml:"state,omitempty"`
}

// merge appends other onto c. Names must agree when both are set.
func (c *SystemConfig) merge(other SystemConfig, origin string) error {
	if other.Name != "" {
		if c.Name != "" && c.Name != other.Name {
			return domain.NewConfigError("yaml", "%s: system name %q conflicts with %q", origin, other.Name, c.Name)
		}
		c.Name = other.Name
	}
	c.Components = append(c.Components, other.Components...)
	c.Connections = append(c.Connections, other.Connections...)
	c.Indicators = append(c.Indicators, other.Indicators...)
	c.Targets = append(c.Targets, other.Targets...)
	c.Monitor = append(c.Monitor, other.Monitor...)
	return nil
}

func parseStats(indicator string, raw []string) ([]domain.Stat, error) {
	if len(raw) == 0 {
		return []domain.Stat{domain.StatMean}, nil
	}
	stats := make([]domain.Stat, 0, len(raw))
	for _, s := range raw {
		stat := domain.Stat(s)
		if !stat.Valid() {
			return nil, domain.NewConfigError("yaml", "indicator %q: unknown stat %q (want mean, stddev or p90)", indicator, s)
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

func (t TargetConfig) toDomain() (*domain.Target, error) {
	if t.Name == "" {
		return nil, domain.NewConfigError("yaml", "target missing name")
	}
	if t.State != "" {
		if t.Automaton == "" {
			return nil, domain.NewConfigError("yaml", "target %q: state target needs an automaton", t.Name)
		}
		return domain.NewStateTarget(t.Name, t.Component, t.Automaton, t.State), nil
	}
	if t.Variable == "" {
		return nil, domain.NewConfigError("yaml", "target %q: needs either variable or automaton+state", t.Name)
	}
	return domain.NewVarTarget(t.Name, t.Component, t.Variable, t.Value), nil
}
