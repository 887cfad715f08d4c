package sluice

import _ "embed"

// Version is the release version, embedded from the VERSION file. It may
// carry a trailing newline; trim before printing.
//
//go:embed VERSION
var Version string
