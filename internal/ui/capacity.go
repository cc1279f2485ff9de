package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// RenderCapacityBar draws how much of an image's capacity a message of used
// bytes takes. A used value over capacity renders a full bar in the error color.
func RenderCapacityBar(used, capacity, width int) string {
	barWidth := width - 30 // Leave room for the counts
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}

	percent := 0.0
	if capacity > 0 {
		percent = float64(used) / float64(capacity)
	} else if used > 0 {
		percent = 1
	}

	opts := []progress.Option{progress.WithWidth(barWidth), progress.WithoutPercentage()}
	countStyle := lipgloss.NewStyle().Foreground(TextColor)
	if percent > 1 {
		percent = 1
		opts = append(opts, progress.WithSolidFill(string(ErrorColor)))
		countStyle = ErrorMessageStyle
	} else {
		opts = append(opts, progress.WithDefaultGradient())
	}
	bar := progress.New(opts...)

	counts := countStyle.Render(fmt.Sprintf("%d/%d bytes", used, capacity))
	return lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %3.0f%%  %s", bar.ViewAs(percent), percent*100, counts))
}
