package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmOverwrite warns that path exists and asks whether to replace it.
// Anything other than y or yes, including EOF, means no.
func ConfirmOverwrite(in io.Reader, out io.Writer, path string) bool {
	width := GetTerminalWidth()

	lines := []string{
		"",
		WarningTitleStyle.Render(fmt.Sprintf("   %s  FILE EXISTS  ─  %s", WarningMarker, path)),
		"",
		lipgloss.NewStyle().Foreground(TextColor).Render("   • The existing file will be replaced"),
		"",
	}
	box := ResultBoxStyle(width, WarningColor).Render(strings.Join(lines, "\n"))

	_, _ = fmt.Fprintln(out, box)
	_, _ = fmt.Fprint(out, PromptStyle.Render("Overwrite? [y/N]: "))

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	}

	_, _ = fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("  Operation cancelled."))
	return false
}
