package report

import (
	"github.com/charmbracelet/glamour"
)

// Render renders markdown for the terminal using glamour, detecting the
// light or dark background automatically. On renderer failure the raw
// markdown is returned so the report is never lost.
func Render(markdown string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(110),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}
