package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("6")
	colorMuted   = lipgloss.Color("241")
	colorSuccess = lipgloss.Color("42")
	colorWarning = lipgloss.Color("214")
	colorError   = lipgloss.Color("196")
)

// styles are bound to the renderer of one output stream so color is only
// emitted when that stream supports it.
type styles struct {
	title   lipgloss.Style
	name    lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
}

func newStyles(w io.Writer) styles {
	return stylesFor(lipgloss.NewRenderer(w))
}

func stylesFor(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Foreground(colorPrimary).Bold(true),
		name:    r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(colorMuted),
		success: r.NewStyle().Foreground(colorSuccess),
		warning: r.NewStyle().Foreground(colorWarning),
		err:     r.NewStyle().Foreground(colorError),
	}
}
