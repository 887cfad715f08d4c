/*
Package observability provides tools for monitoring simulation campaigns.

It includes Prometheus collectors fed by the engine's simulation hooks for
counting runs, transitions and target hits, and an aggregator for fanning a
campaign's events out to several hook sets at once.
*/
package observability
