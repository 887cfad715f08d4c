package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateName is returned when a name collides with one already declared
// in the same scope.
var ErrDuplicateName = errors.New("duplicate name")

// ErrUnknownVariable is returned when a variable reference cannot be resolved.
var ErrUnknownVariable = errors.New("unknown variable")

// ErrUnknownComponent is returned when a component reference cannot be
// resolved.
var ErrUnknownComponent = errors.New("unknown component")

// ErrUnknownFlow is returned when a port or flow reference cannot be resolved
// on a component.
var ErrUnknownFlow = errors.New("unknown flow")

// ErrUnknownAutomaton is returned when an automaton reference cannot be
// resolved on a component.
var ErrUnknownAutomaton = errors.New("unknown automaton")

// ErrUnknownTransition is returned when a transition reference cannot be
// resolved during interactive stepping.
var ErrUnknownTransition = errors.New("unknown transition")

// ErrSessionNotFound is returned when a session ID cannot be found in the
// store.
var ErrSessionNotFound = errors.New("session not found")

// ErrCampaignNotFound is returned when a stored campaign cannot be found.
var ErrCampaignNotFound = errors.New("campaign not found")

// ErrRunFrozen is returned when an interactive step is requested after the
// run reached a target or its horizon.
var ErrRunFrozen = errors.New("run is frozen")

func newUnknownPortError(component, port string) error {
	return fmt.Errorf("component %q: port %q: %w", component, port, ErrUnknownFlow)
}

// ConfigError reports an invalid model or simulation configuration. It is
// detected eagerly at build time, before any run starts.
type ConfigError struct {
	Stage  string // where the problem was found, e.g. "connect", "law", "schedule"
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Stage == "" {
		return "config: " + e.Detail
	}
	return "config: " + e.Stage + ": " + e.Detail
}

// NewConfigError builds a ConfigError with a formatted detail message.
func NewConfigError(stage, format string, args ...any) *ConfigError {
	return &ConfigError{Stage: stage, Detail: fmt.Sprintf(format, args...)}
}

// InconsistencyError reports a flow propagation that failed to reach a fixed
// point. It indicates an engine or model defect, never a stochastic outcome.
// Dump carries the variable assignment at the moment the sweep limit was hit.
type InconsistencyError struct {
	Run    int
	Time   float64
	Detail string
	Dump   map[string]bool
}

func (e *InconsistencyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "inconsistency in run %d at t=%g: %s", e.Run, e.Time, e.Detail)
	if len(e.Dump) > 0 {
		fmt.Fprintf(&b, " (%d variables dumped)", len(e.Dump))
	}
	return b.String()
}
