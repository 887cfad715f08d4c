/*
Package dsl provides a fluent builder for assembling systems in Go code.

It lets models be defined with type checking and IDE support instead of
external YAML files, which is particularly useful for tests and generated
models.

Example usage:

	b := dsl.NewSystem("grid")

	b.Component("S1", rbd.ClassSource, nil)
	b.Component("P1", rbd.ClassBlock, nil).
		ExpFailure("fm", 0.001, 0.1, "is_ok_fed_available_out")
	b.Component("T1", rbd.ClassTarget, nil)

	b.AutoConnect("S1", "P1")
	b.AutoConnect("P1", "T1")
	b.Indicator("served", "T1", "is_ok_fed_in")

	sys, err := b.Build()
	// ... hand sys to sluice.New().Run or a session.Manager.
*/
package dsl
