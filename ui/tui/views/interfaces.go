package views

import (
	"fmt"
	"strings"

	"netmon/internal/output"
	"netmon/ui/tui/state"

	"github.com/charmbracelet/lipgloss"
)

type InterfacesView struct{}

func (v InterfacesView) Render(s state.AppState, props ViewProps) string {
	header := pageHeader("Interface Traffic", props.Width)

	body := "No interface readings"
	if sec := s.View.SectionByID(output.SectionInterfaces); sec != nil {
		lines := strings.Split(RenderItems(sec.Items), "\n")
		visible, _ := window(lines, props.ScrollY, props.Height-lipgloss.Height(header)-6)
		body = strings.Join(visible, "\n")
		body = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d interfaces, inbound rate", len(sec.Items))),
			body,
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2).Render(body),
		backHint(),
	)
}
