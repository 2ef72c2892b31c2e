package display

import (
	"github.com/charmbracelet/glamour"
)

// Markdown renders markdown for the terminal. If rendering fails the
// raw markdown is returned unchanged so callers always have something
// to print.
func Markdown(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
