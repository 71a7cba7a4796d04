package views

import (
	"fmt"
	"strings"

	"netmon/internal/output"
	"netmon/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func ColorForStatus(status string) lipgloss.Style {
	sStyle := styles.StatusStyle
	switch status {
	case output.StatusWarning:
		return sStyle.Foreground(styles.Warning)
	case output.StatusCritical:
		return sStyle.Foreground(styles.Critical)
	}
	return sStyle.Foreground(styles.Healthy)
}

// SeverityStyle colors a raw alert severity.
func SeverityStyle(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "critical":
		return ColorForStatus(output.StatusCritical)
	case "warning":
		return ColorForStatus(output.StatusWarning)
	}
	return ColorForStatus(output.StatusHealthy)
}

func formatValue(it output.Item) string {
	switch {
	case it.Unit != "":
		return fmt.Sprintf("%.1f%s", it.Value, it.Unit)
	case it.Note != "":
		return it.Note
	default:
		return fmt.Sprintf("%.1f", it.Value)
	}
}

// RenderItems lists a section as "label : value [status]" lines.
func RenderItems(items []output.Item) string {
	var b strings.Builder
	for _, item := range items {
		valStr := formatValue(item)
		if item.Status != "" {
			valStr = ColorForStatus(item.Status).Render(fmt.Sprintf("%s [%s]", valStr, item.Status))
		}
		fmt.Fprintf(&b, "%-15s : %s\n", item.Label, valStr)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// window clamps scrollY and returns the visible slice of lines.
func window(lines []string, scrollY, height int) ([]string, int) {
	if height < 1 {
		height = 1
	}
	if scrollY > len(lines)-height {
		scrollY = len(lines) - height
	}
	if scrollY < 0 {
		scrollY = 0
	}
	end := scrollY + height
	if end > len(lines) {
		end = len(lines)
	}
	return lines[scrollY:end], scrollY
}

func pageHeader(title string, width int) string {
	return MenuHeaderStyle.Width(width).Render(title)
}

func backHint() string {
	return lipgloss.NewStyle().Padding(1, 2).Foreground(styles.Subtle).Render("Press 'b' to go back")
}
