// Package middleware wraps result stores with behavior applied on the way in
// and out: campaign encryption at rest and run-record capping. Middleware
// compose by nesting, innermost closest to the store:
//
//	var store ports.ResultStore = sqliteStore
//	store = middleware.NewEncryption(cfg)(store)
//	store = middleware.NewRunCap(1000)(store)
//
// With that chain a save caps the run records first, then seals the campaign,
// then hands the envelope to the store.
package middleware

import "github.com/aretw0/sluice/pkg/ports"

// Middleware allows wrapping a ResultStore to add behavior.
type Middleware func(ports.ResultStore) ports.ResultStore
