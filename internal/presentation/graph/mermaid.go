// Package graph renders system topologies as Mermaid flowcharts.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/kb/rbd"
)

// GraphOverlay contains live run state to visualize on top of the topology.
type GraphOverlay struct {
	Degraded []string // components with an automaton away from its initial state
	Unfed    []string // components with an unfed input flow
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a system.
// It applies semantic styling:
// - Source, SourceTrigger: ((Circle))
// - LogicOr, LogicAnd: {{Hexagon}}
// - Target: [/Parallelogram/]
// - Default: [Rectangle]
// Components carrying automata are annotated with the automata names, trigger
// connections are drawn dashed, and overlay styles (Degraded/Unfed) are
// applied if provided.
func GenerateMermaid(sys *domain.System, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	// Label edges with their flow name only when the system exchanges more
	// than one flow; single-flow diagrams stay uncluttered.
	labelFlows := countFlows(sys) > 1

	for _, comp := range sys.Components {
		// Sanitize ID for Mermaid
		safeID := sanitizeMermaidID(comp.Name)

		// Node Shape based on Class
		opener, closer := "[", "]"

		switch comp.Class {
		case rbd.ClassSource, rbd.ClassSourceTrigger:
			opener, closer = "((", "))" // Circle
		case rbd.ClassLogicOr, rbd.ClassLogicAnd:
			opener, closer = "{{", "}}" // Hexagon
		case rbd.ClassTarget:
			opener, closer = "[/", "/]" // Parallelogram
		}

		label := comp.Name
		switch comp.Class {
		case rbd.ClassLogicOr:
			label += " <br/> OR"
		case rbd.ClassLogicAnd:
			label += " <br/> AND"
		}
		if names := automatonNames(comp); len(names) > 0 {
			// Annotate node with its automata (failure modes, triggers)
			label += " <br/> ⏱️ " + strings.Join(names, ", ")
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))
	}

	for _, conn := range sys.Connections {
		safeSrc := sanitizeMermaidID(conn.Src)
		safeDst := sanitizeMermaidID(conn.Dst)

		arrow := "-->"
		if strings.HasSuffix(conn.DstFlow, domain.TriggerSuffix) {
			// Trigger edges carry a signal, not a flow; draw them dashed.
			arrow = fmt.Sprintf("-. ⚡ %s .->", escapeMermaidLabel(conn.SrcFlow))
		} else if labelFlows {
			arrow = fmt.Sprintf("-- \"%s\" -->", escapeMermaidLabel(conn.SrcFlow))
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeSrc, arrow, safeDst))
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef degraded fill:#ffebee,stroke:#b71c1c,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef unfed fill:#fff3e0,stroke:#e65100,stroke-width:2px,color:#000;\n")
		writeOverlayClass(&sb, overlay.Degraded, "degraded")
		writeOverlayClass(&sb, overlay.Unfed, "unfed")
	}

	return sb.String()
}

// writeOverlayClass emits one "class" statement per distinct component.
func writeOverlayClass(sb *strings.Builder, names []string, class string) {
	seen := make(map[string]bool)
	for _, name := range names {
		safeID := sanitizeMermaidID(name)
		if safeID == "" || seen[safeID] {
			continue
		}
		seen[safeID] = true
		fmt.Fprintf(sb, "    class %s %s;\n", safeID, class)
	}
}

func countFlows(sys *domain.System) int {
	seen := make(map[string]bool)
	for _, conn := range sys.Connections {
		seen[conn.SrcFlow] = true
	}
	return len(seen)
}

func automatonNames(c *domain.Component) []string {
	names := make([]string, 0, len(c.Automata))
	for _, a := range c.Automata {
		names = append(names, a.Name)
	}
	return names
}

// escapeMermaidLabel escapes double quotes for use inside a Mermaid label.
func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
