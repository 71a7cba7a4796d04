package views

import (
	"fmt"
	"strings"

	"netmon/internal/output"
	"netmon/ui/tui/state"
	"netmon/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

type ServerView struct{}

const barWidth = 20

func usageBar(item output.Item) string {
	filled := int(float64(barWidth) * item.Value / 100)
	filled = max(0, min(filled, barWidth))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("%-8s [%s] %5.1f%%", item.Label, ColorForStatus(item.Status).Render(bar), item.Value)
}

func (v ServerView) Render(s state.AppState, props ViewProps) string {
	header := pageHeader("Server Telemetry & Analysis", props.Width)

	identity := "No probe reading yet"
	if len(s.Report.Probe) > 0 {
		meta := s.Report.Probe[0].Meta
		identity = fmt.Sprintf("Device: %s\nHost ID: %s\nPlatform: %s\nLocation: %s",
			meta.DeviceID, meta.HostID, meta.ServerType, meta.Location)
	}
	info := lipgloss.NewStyle().Padding(1, 2).Render(identity)

	chart := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Highlight).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render("CPU History"),
			props.ChartView,
		))

	var bars, other []string
	if sec := s.View.SectionByID(output.SectionProbe); sec != nil {
		for _, item := range sec.Items {
			if item.Unit == "%" {
				bars = append(bars, usageBar(item))
			} else {
				other = append(other, RenderItems([]output.Item{item}))
			}
		}
	}
	usage := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Highlight).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render("Utilization"),
			strings.Join(bars, "\n"),
			"",
			strings.Join(other, "\n"),
		))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		info,
		lipgloss.JoinHorizontal(lipgloss.Top, chart, usage),
		backHint(),
	)
}
