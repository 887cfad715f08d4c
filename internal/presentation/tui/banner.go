// Package tui holds the terminal chrome shared by the interactive commands.
package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner with the version underneath.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Shallow-to-deep water gradient
	s1 := termenv.String("   ____  _       _          ").Foreground(p.Color("#7dd3fc"))
	s2 := termenv.String("  / ___|| |_   _(_) ___ ___ ").Foreground(p.Color("#38bdf8"))
	s3 := termenv.String("  \\___ \\| | | | | |/ __/ _ \\").Foreground(p.Color("#0ea5e9"))
	s4 := termenv.String("   ___) | | |_| | | (_|  __/").Foreground(p.Color("#0284c7"))
	s5 := termenv.String("  |____/|_|\\__,_|_|\\___\\___|").Foreground(p.Color("#0369a1"))
	sub := termenv.String(fmt.Sprintf("  flow simulation engine %s", strings.TrimSpace(version))).Faint()

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println(sub)
	fmt.Println()
}
