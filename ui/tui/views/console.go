package views

import (
	"fmt"
	"strings"

	"netmon/ui/tui/state"

	"github.com/charmbracelet/lipgloss"
)

type ConsoleView struct{}

func (v ConsoleView) Render(s state.AppState, props ViewProps) string {
	header := pageHeader("Live Console View", props.Width)

	availableHeight := props.Height - lipgloss.Height(header) - 4
	visible, scrollY := window(s.ConsoleLogs, props.ScrollY, availableHeight)
	if availableHeight < 1 {
		availableHeight = 1
	}

	box := lipgloss.NewStyle().
		Width(props.Width-4).
		Height(availableHeight).
		Padding(0, 1).
		Render(strings.Join(visible, "\n"))

	totalLines := len(s.ConsoleLogs)
	footerText := fmt.Sprintf("Scroll: %d/%d • Press 'b' to go back", scrollY, totalLines)
	if totalLines > availableHeight {
		footerText += " • Use ↑/↓ to scroll"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2).Render(box),
		lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("#555")).Render(footerText),
	)
}
