package views

import (
	"fmt"
	"math"

	"netmon/ui/tui/state"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

// MenuOptions are listed in the same order as the pages they open.
var MenuOptions = []string{
	"Console Output View",
	"Network Operations Dashboard",
	"Server Telemetry & Analysis",
	"Host Inventory",
	"Active Alerts",
	"Interface Traffic",
}

type MenuView struct{}

func (v MenuView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("NETMON // NETWORK OPERATIONS")

	var menuItems []string
	listStartY := 6

	for i, option := range MenuOptions {
		dist := math.Abs(float64(i) - props.AnimCursor)
		selectionStrength := 0.0
		if dist < 1.0 {
			selectionStrength = 1.0 - dist
		}

		// Borders brighten as the mouse approaches.
		itemCenterY := listStartY + (i * 3) + 1
		mouseDistY := math.Abs(float64(props.MouseY - itemCenterY))

		borderColor := BaseColor
		if mouseDistY < 10 {
			ratio := 1.0 - (mouseDistY / 10.0)
			if ratio > 0.5 {
				borderColor = lipgloss.Color("#aaa")
			}
		}

		if selectionStrength > 0.1 || i == props.MenuCursor {
			borderColor = BrandColor
		}

		popOut := int(selectionStrength * 2)

		boxStyle := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1).
			MarginLeft(2 + popOut).
			Width(40)

		if i == props.MenuCursor {
			boxStyle = boxStyle.Bold(true).Foreground(lipgloss.Color("#FFF"))
		} else {
			boxStyle = boxStyle.Foreground(lipgloss.Color("#AAA"))
		}

		renderedItem := boxStyle.Render(fmt.Sprintf("%02d. %s", i+1, option))
		menuItems = append(menuItems, zone.Mark(MenuZone(i), renderedItem))
	}

	menuList := lipgloss.JoinVertical(lipgloss.Left, menuItems...)

	menuContent := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).PaddingLeft(2).Foreground(BrandColor).Render("MONITORING MODULES"),
		CopyStyle.Render("Select a view to inspect the fleet."),
		menuList,
	)

	status := fmt.Sprintf("%d hosts • %d alerts", s.View.HostCount, s.View.AlertCount)
	if !s.LastUpdate.IsZero() {
		status += " • updated " + s.LastUpdate.Format("15:04:05")
	}
	footer := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(lipgloss.Color("#666")).Render(status),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#333")).Render("\n[↑/↓] Navigate • [Enter] Select • [Q] Quit"),
	)

	body := lipgloss.JoinVertical(lipgloss.Left,
		MenuBoxStyle.Render(menuContent),
		lipgloss.NewStyle().PaddingLeft(2).Render(footer),
	)

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, header, body))
}

// MenuZone is the bubblezone ID of menu entry i.
func MenuZone(i int) string {
	return fmt.Sprintf("menu_%d", i)
}

var (
	BrandColor = lipgloss.Color("#f27b24")
	BaseColor  = lipgloss.Color("#444")

	MenuHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(BrandColor).
			Align(lipgloss.Left).
			Padding(1, 2)

	MenuBoxStyle = lipgloss.NewStyle().
			Padding(1, 0).
			MarginTop(1)

	CopyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888")).
			Italic(true).
			MarginBottom(1).
			PaddingLeft(2)
)
