package views

import (
	"fmt"

	"netmon/internal/output"
	"netmon/ui/tui/state"
	"netmon/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

type DashboardView struct{}

const maxDashboardInterfaces = 8

func card(title, body string, extra ...string) string {
	parts := append([]string{lipgloss.NewStyle().Bold(true).Render(title), body}, extra...)
	return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (v DashboardView) Render(s state.AppState, props ViewProps) string {
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		props.SpinnerView,
		styles.TitleStyle.Render("NetMon TUI"),
		fmt.Sprintf(" Last Update: %s", s.LastUpdate.Format("15:04:05")),
	)
	if s.Err != nil {
		header = lipgloss.JoinVertical(lipgloss.Left, header,
			ColorForStatus(output.StatusCritical).Render(fmt.Sprintf("Error: %v", s.Err)))
	}

	dashboard := s.View
	var serverCol, fleetCol, ifaceCol, cityCol, alertCol string

	if sec := dashboard.SectionByID(output.SectionProbe); sec != nil {
		serverCol = zone.Mark("server_box", card("Server Metrics", RenderItems(sec.Items), props.ChartView))
	}
	if sec := dashboard.SectionByID(output.SectionFleet); sec != nil {
		fleetCol = card("Fleet", RenderItems(sec.Items))
	}
	if sec := dashboard.SectionByID(output.SectionInterfaces); sec != nil {
		items := sec.Items
		more := ""
		if len(items) > maxDashboardInterfaces {
			more = fmt.Sprintf("… %d more", len(items)-maxDashboardInterfaces)
			items = items[:maxDashboardInterfaces]
		}
		ifaceCol = card("Interfaces", RenderItems(items), more)
	}
	if sec := dashboard.SectionByID(output.SectionCities); sec != nil {
		cityCol = card("City Health", RenderItems(sec.Items))
	}
	if sec := dashboard.SectionByID(output.SectionAlerts); sec != nil {
		alertCol = zone.Mark("alerts_box", card(sec.Title, RenderItems(sec.Items)))
	}

	row1 := lipgloss.JoinHorizontal(lipgloss.Top, serverCol, fleetCol)
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, ifaceCol, cityCol, alertCol)

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		row1,
		row2,
		lipgloss.NewStyle().Foreground(styles.Subtle).Render("\nPress 'b' to go back • 'q' to quit"),
	))
}
