package views

import (
	"fmt"
	"sort"
	"strings"

	"netmon/internal/model"
	"netmon/ui/tui/state"
	"netmon/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

type AlertsView struct{}

const alertRowFormat = "%-15s %-9s %-20s %-28s %s"

// AlertLines renders the report's alerts newest first.
func AlertLines(s state.AppState) []string {
	alerts := make([]model.Event, len(s.Report.Alerts))
	copy(alerts, s.Report.Alerts)
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].DetectedAt.After(alerts[j].DetectedAt) })

	lines := make([]string, 0, len(alerts))
	for _, e := range alerts {
		device := e.DeviceID
		if device == "" {
			device = e.HostID
		}
		what := e.Metric
		if e.Iface != "" && e.Iface != model.GlobalIface {
			what = e.Iface + " " + what
		}
		line := fmt.Sprintf(alertRowFormat,
			e.DetectedAt.Local().Format("01-02 15:04:05"),
			e.Severity, clip(device, 20), clip(what, 28), e.Value.String())
		lines = append(lines, SeverityStyle(e.Severity).UnsetBold().Render(line))
	}
	return lines
}

func (v AlertsView) Render(s state.AppState, props ViewProps) string {
	header := pageHeader(fmt.Sprintf("Active Alerts (%d)", len(s.Report.Alerts)), props.Width)
	cols := styles.HeaderRowStyle.Render(fmt.Sprintf(alertRowFormat, "DETECTED", "SEVERITY", "DEVICE", "METRIC", "VALUE"))

	lines := AlertLines(s)
	body := "No alerts"
	if len(lines) > 0 {
		visible, _ := window(lines, props.ScrollY, props.Height-lipgloss.Height(header)-6)
		body = strings.Join(visible, "\n")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, cols, body)),
		backHint(),
	)
}
