package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is a banner box with a title, a subtitle and parameter lines.
type Header struct {
	Title    string   // e.g., "IMAGE"
	Subtitle string   // e.g., the image path
	Params   []Detail // e.g., {"Width", "640"}
	Width    int      // Terminal width for responsive rendering
}

// NewHeader creates a new header with the given values
func NewHeader(title, subtitle string, params ...Detail) *Header {
	return &Header{
		Title:    title,
		Subtitle: subtitle,
		Params:   params,
		Width:    GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := h.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	top := HeaderTitleStyle.Render(strings.ToUpper(h.Title))
	if h.Subtitle != "" {
		top = lipgloss.JoinVertical(lipgloss.Left, top, HeaderCommandStyle.Render(h.Subtitle))
	}

	if len(h.Params) == 0 {
		return HeaderBorderStyle(width).Render(top)
	}

	dividerWidth := width - 6 // Account for border and padding
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	divider := RenderHorizontalDivider(dividerWidth, "─")
	params := strings.Join(renderDetails(h.Params, HeaderParamKeyStyle, HeaderParamValueStyle, ""), "\n")

	return HeaderBorderStyle(width).Render(lipgloss.JoinVertical(lipgloss.Left, top, divider, params))
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
