package cmd

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const markdownWidth = 80

// renderMarkdown renders Markdown for terminal display. Any styling
// failure degrades to the raw text rather than losing output.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWidth),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSuffix(out, "\n")
}
