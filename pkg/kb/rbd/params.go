package rbd

import (
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/registry"
)

// FailureParams declares one failure mode attached to a component. Kind
// selects the law: "delay" uses FailureTime/RepairTime, "exp" uses
// FailureRate/RepairRate.
type FailureParams struct {
	Name string `mapstructure:"name"`
	Kind string `mapstructure:"kind"`

	FailureTime float64 `mapstructure:"failure_time"`
	RepairTime  float64 `mapstructure:"repair_time"`

	FailureRate float64 `mapstructure:"failure_rate"`
	RepairRate  float64 `mapstructure:"repair_rate"`

	// Cond names a component variable guarding the failure transition, e.g.
	// "is_ok_fed_in". Empty keeps the failure always armed. CondNegate
	// inverts the guard.
	Cond       string `mapstructure:"cond"`
	CondNegate bool   `mapstructure:"cond_negate"`

	// Effects lists the variable patterns forced false while failed and
	// restored on repair. Empty defaults to "{flow}_fed_available_out".
	Effects []string `mapstructure:"effects"`
}

type sourceParams struct {
	Flow     string          `mapstructure:"flow"`
	Negate   bool            `mapstructure:"negate"`
	Failures []FailureParams `mapstructure:"failures"`
}

type sourceTriggerParams struct {
	Flow     string          `mapstructure:"flow"`
	TimeUp   float64         `mapstructure:"trigger_time_up"`
	TimeDown float64         `mapstructure:"trigger_time_down"`
	Logic    string          `mapstructure:"trigger_logic"`
	Negate   bool            `mapstructure:"negate"`
	Failures []FailureParams `mapstructure:"failures"`
}

type blockParams struct {
	Flow     string          `mapstructure:"flow"`
	Logic    string          `mapstructure:"logic"`
	Negate   bool            `mapstructure:"negate"`
	Failures []FailureParams `mapstructure:"failures"`
}

type targetParams struct {
	Flow  string `mapstructure:"flow"`
	Logic string `mapstructure:"logic"`
}

type gateParams struct {
	Flows []string `mapstructure:"flows"`
}

// decodeParams maps the loose declaration params onto a typed struct.
// Unknown keys are rejected so config typos surface at build time.
func decodeParams(class string, params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return domain.NewConfigError("kb", "class %s: %v", class, err)
	}
	return nil
}

func parseLogic(class, raw string) (domain.Logic, error) {
	if raw == "" {
		return "", nil
	}
	logic := domain.Logic(raw)
	if !logic.Valid() {
		return "", domain.NewConfigError("kb", "class %s: invalid logic %q", class, raw)
	}
	return logic, nil
}

func outOpts(negate bool) []domain.FlowOutOption {
	if negate {
		return []domain.FlowOutOption{domain.Negated()}
	}
	return nil
}

// applyFailures attaches each declared failure mode to the component.
func applyFailures(c *domain.Component, flow string, failures []FailureParams) error {
	for _, f := range failures {
		if f.Name == "" {
			return domain.NewConfigError("kb", "component %q: failure mode missing name", c.Name)
		}
		effects := f.Effects
		if len(effects) == 0 {
			effects = []string{domain.VarName(flow, domain.SuffixFedAvailableOut)}
		}
		var cond domain.Cond
		if f.Cond != "" {
			if f.CondNegate {
				cond = domain.NotVarCond(f.Cond)
			} else {
				cond = domain.VarCond(f.Cond)
			}
		}
		var err error
		switch f.Kind {
		case "delay":
			err = c.AddDelayFailureMode(f.Name, cond, f.FailureTime, effects, f.RepairTime)
		case "exp":
			err = c.AddExpFailureMode(f.Name, cond, f.FailureRate, effects, f.RepairRate)
		default:
			err = domain.NewConfigError("kb", "component %q: failure %q: unknown kind %q (want delay or exp)", c.Name, f.Name, f.Kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func buildSource(name string, params map[string]any) (*domain.Component, error) {
	var p sourceParams
	if err := decodeParams(ClassSource, params, &p); err != nil {
		return nil, err
	}
	c, err := NewSource(name, p.Flow, outOpts(p.Negate)...)
	if err != nil {
		return nil, err
	}
	if err := applyFailures(c, flowOrDefault(p.Flow), p.Failures); err != nil {
		return nil, err
	}
	return c, nil
}

func buildSourceTrigger(name string, params map[string]any) (*domain.Component, error) {
	var p sourceTriggerParams
	if err := decodeParams(ClassSourceTrigger, params, &p); err != nil {
		return nil, err
	}
	logic, err := parseLogic(ClassSourceTrigger, p.Logic)
	if err != nil {
		return nil, err
	}
	spec := domain.TriggerSpec{
		TimeUp:   p.TimeUp,
		TimeDown: p.TimeDown,
		Logic:    logic,
	}
	c, err := NewSourceTrigger(name, p.Flow, spec, outOpts(p.Negate)...)
	if err != nil {
		return nil, err
	}
	if err := applyFailures(c, flowOrDefault(p.Flow), p.Failures); err != nil {
		return nil, err
	}
	return c, nil
}

func buildBlock(name string, params map[string]any) (*domain.Component, error) {
	var p blockParams
	if err := decodeParams(ClassBlock, params, &p); err != nil {
		return nil, err
	}
	logic, err := parseLogic(ClassBlock, p.Logic)
	if err != nil {
		return nil, err
	}
	c, err := NewBlock(name, p.Flow, logic, outOpts(p.Negate)...)
	if err != nil {
		return nil, err
	}
	if err := applyFailures(c, flowOrDefault(p.Flow), p.Failures); err != nil {
		return nil, err
	}
	return c, nil
}

func buildTarget(name string, params map[string]any) (*domain.Component, error) {
	var p targetParams
	if err := decodeParams(ClassTarget, params, &p); err != nil {
		return nil, err
	}
	logic, err := parseLogic(ClassTarget, p.Logic)
	if err != nil {
		return nil, err
	}
	return NewTarget(name, p.Flow, logic)
}

func buildLogicGate(logic domain.Logic) registry.Factory {
	class := ClassLogicOr
	if logic == domain.LogicAnd {
		class = ClassLogicAnd
	}
	return func(name string, params map[string]any) (*domain.Component, error) {
		var p gateParams
		if err := decodeParams(class, params, &p); err != nil {
			return nil, err
		}
		return NewLogicGate(name, logic, p.Flows)
	}
}
