/*
Package session manages live interactive runs.

It hands out stepping sessions over compiled systems and serializes access
to each one, integrating per-session in-process locks with optional
distributed locking for multi-replica deployments.
*/
package session
