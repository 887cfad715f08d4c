package domain

import "fmt"

// VariableSet is an ordered collection of named boolean variables with
// per-variable defaults. Iteration order is declaration order, which keeps
// every sweep over the set deterministic.
type VariableSet struct {
	names    []string
	defaults map[string]bool
	values   map[string]bool
}

// NewVariableSet returns an empty variable set.
func NewVariableSet() *VariableSet {
	return &VariableSet{
		defaults: make(map[string]bool),
		values:   make(map[string]bool),
	}
}

// Declare adds a variable with its default value. Declaring the same name
// twice is an error.
func (vs *VariableSet) Declare(name string, def bool) error {
	if _, ok := vs.defaults[name]; ok {
		return fmt.Errorf("variable %q: %w", name, ErrDuplicateName)
	}
	vs.names = append(vs.names, name)
	vs.defaults[name] = def
	vs.values[name] = def
	return nil
}

// Has reports whether the variable is declared.
func (vs *VariableSet) Has(name string) bool {
	_, ok := vs.defaults[name]
	return ok
}

// Get returns the current value of a declared variable.
func (vs *VariableSet) Get(name string) (bool, error) {
	v, ok := vs.values[name]
	if !ok {
		return false, fmt.Errorf("variable %q: %w", name, ErrUnknownVariable)
	}
	return v, nil
}

// Set assigns a value and reports whether it changed.
func (vs *VariableSet) Set(name string, value bool) (changed bool, err error) {
	old, ok := vs.values[name]
	if !ok {
		return false, fmt.Errorf("variable %q: %w", name, ErrUnknownVariable)
	}
	vs.values[name] = value
	return value != old, nil
}

// Default returns the declared default of a variable.
func (vs *VariableSet) Default(name string) (bool, error) {
	v, ok := vs.defaults[name]
	if !ok {
		return false, fmt.Errorf("variable %q: %w", name, ErrUnknownVariable)
	}
	return v, nil
}

// Reset restores every variable to its default.
func (vs *VariableSet) Reset() {
	for _, n := range vs.names {
		vs.values[n] = vs.defaults[n]
	}
}

// Names returns the variable names in declaration order. The returned slice
// is shared; callers must not mutate it.
func (vs *VariableSet) Names() []string {
	return vs.names
}

// Len returns the number of declared variables.
func (vs *VariableSet) Len() int {
	return len(vs.names)
}

// Snapshot copies the current values into a fresh map.
func (vs *VariableSet) Snapshot() map[string]bool {
	out := make(map[string]bool, len(vs.values))
	for k, v := range vs.values {
		out[k] = v
	}
	return out
}
