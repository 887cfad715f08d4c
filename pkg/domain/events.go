package domain

import "context"

// EventType defines the category of a simulation event.
type EventType string

const (
	EventRunStart      EventType = "run_start"
	EventRunEnd        EventType = "run_end"
	EventTransition    EventType = "transition"
	EventTargetReached EventType = "target_reached"
)

// EventBase contains common fields for all simulation events.
type EventBase struct {
	Type   EventType `json:"type"`
	System string    `json:"system"`
	Run    int       `json:"run"`
	Time   float64   `json:"time"`
}

// RunEvent marks the start or end of one run.
type RunEvent struct {
	EventBase
	Seed          uint64 `json:"seed"`
	TargetReached bool   `json:"target_reached,omitempty"`
}

// TransitionEvent reports one automaton transition firing.
type TransitionEvent struct {
	EventBase
	Fired FiredTransition `json:"fired"`
}

// TargetEvent reports a stop target condition becoming true.
type TargetEvent struct {
	EventBase
	Target string `json:"target"`
}

// SimulationHooks defines callbacks for campaign observability. All fields
// are optional. Callbacks run on the worker goroutine executing the run, so
// they must be safe for concurrent use when runs execute in parallel.
type SimulationHooks struct {
	OnRunStart        func(context.Context, *RunEvent)
	OnRunEnd          func(context.Context, *RunEvent)
	OnTransitionFired func(context.Context, *TransitionEvent)
	OnTargetReached   func(context.Context, *TargetEvent)
}

// SchedulePhase defines one sampling window: NValues evenly spaced sample
// instants between Start and End inclusive.
type SchedulePhase struct {
	Start   float64 `json:"start" yaml:"start"`
	End     float64 `json:"end" yaml:"end"`
	NValues int     `json:"nvalues" yaml:"nvalues"`
}

// Validate checks the phase bounds.
func (p SchedulePhase) Validate() error {
	if p.NValues <= 0 {
		return NewConfigError("schedule", "nvalues must be positive, got %d", p.NValues)
	}
	if p.Start < 0 {
		return NewConfigError("schedule", "start must not be negative, got %g", p.Start)
	}
	if p.End <= p.Start {
		return NewConfigError("schedule", "end %g must be after start %g", p.End, p.Start)
	}
	return nil
}

// SamplePoints returns the sample instants of the phase. A single value
// samples the phase start.
func (p SchedulePhase) SamplePoints() []float64 {
	if p.NValues <= 0 {
		return nil
	}
	if p.NValues == 1 {
		return []float64{p.Start}
	}
	pts := make([]float64, p.NValues)
	step := (p.End - p.Start) / float64(p.NValues-1)
	for i := range pts {
		pts[i] = p.Start + float64(i)*step
	}
	pts[p.NValues-1] = p.End
	return pts
}

// SimulationConfig parameterises a campaign of independent runs.
type SimulationConfig struct {
	// Runs is the number of repetitions.
	Runs int `json:"runs" yaml:"runs"`
	// Schedule lists the sampling phases in increasing time order.
	Schedule []SchedulePhase `json:"schedule" yaml:"schedule"`
	// Seed is the base of every run's random stream. Run i draws from a
	// stream derived from (Seed, i), so results are reproducible and
	// independent of execution order.
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	// Workers bounds parallel run execution. Zero means one worker per CPU.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// Validate checks the campaign parameters.
func (c SimulationConfig) Validate() error {
	if c.Runs <= 0 {
		return NewConfigError("simulate", "runs must be positive, got %d", c.Runs)
	}
	if len(c.Schedule) == 0 {
		return NewConfigError("schedule", "at least one phase is required")
	}
	prevEnd := 0.0
	for i, p := range c.Schedule {
		if err := p.Validate(); err != nil {
			return err
		}
		if i > 0 && p.Start < prevEnd {
			return NewConfigError("schedule", "phase %d starts at %g before previous phase ends at %g", i, p.Start, prevEnd)
		}
		prevEnd = p.End
	}
	if c.Workers < 0 {
		return NewConfigError("simulate", "workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// Horizon returns the simulated end time of the campaign.
func (c SimulationConfig) Horizon() float64 {
	if len(c.Schedule) == 0 {
		return 0
	}
	return c.Schedule[len(c.Schedule)-1].End
}

// SamplePoints returns every sample instant of the schedule in order.
func (c SimulationConfig) SamplePoints() []float64 {
	var pts []float64
	for _, p := range c.Schedule {
		pts = append(pts, p.SamplePoints()...)
	}
	return pts
}
