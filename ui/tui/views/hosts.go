package views

import (
	"fmt"
	"strings"

	"netmon/ui/tui/state"
	"netmon/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

type HostsView struct{}

const hostRowFormat = "%-14s %-20s %-10s %-18s %6s  %-9s %s"

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// HostLines renders one fixed-width line per host.
func HostLines(s state.AppState) []string {
	lines := make([]string, 0, len(s.Report.Hosts))
	for _, h := range s.Report.Hosts {
		severity := h.Severity
		if severity == "" {
			severity = "ok"
		}
		seen := "-"
		if !h.LastSeen.IsZero() {
			seen = h.LastSeen.Local().Format("01-02 15:04:05")
		}
		line := fmt.Sprintf(hostRowFormat,
			clip(h.HostID, 14), clip(h.DeviceID, 20), clip(h.DeviceType, 10), clip(h.Location, 18),
			fmt.Sprint(h.InterfaceCount), severity, seen)
		lines = append(lines, SeverityStyle(h.Severity).UnsetBold().Render(line))
	}
	return lines
}

func (v HostsView) Render(s state.AppState, props ViewProps) string {
	header := pageHeader(fmt.Sprintf("Host Inventory (%d)", len(s.Report.Hosts)), props.Width)
	cols := styles.HeaderRowStyle.Render(fmt.Sprintf(hostRowFormat, "HOST ID", "DEVICE", "TYPE", "LOCATION", "IFACES", "SEVERITY", "LAST SEEN"))

	lines := HostLines(s)
	body := "No hosts reporting"
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
