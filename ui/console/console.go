package console

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"netmon/internal/output"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"

	labelWidth = 22
)

// Print renders the dashboard view to the writer in a compact format.
func Print(w io.Writer, view output.DashboardView) {
	fmt.Fprintf(w, "%s■ NETMON REPORT%s", colorCyan, colorReset)
	if !view.Generated.IsZero() {
		fmt.Fprintf(w, " %s", view.Generated.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(w)

	for _, sec := range view.Sections {
		fmt.Fprintf(w, "%s─ %s%s\n", colorCyan, sec.Title, colorReset)
		for _, it := range sec.Items {
			label := truncate(it.Label, labelWidth-2)
			dots := strings.Repeat("·", labelWidth-utf8.RuneCountInString(label))
			fmt.Fprintf(w, "  %s%s%s%s %10s%s\n", label, colorCyan, dots, colorReset, valueText(it), marker(it.Status))
		}
	}

	fmt.Fprintf(w, "%s─ Summary%s: Hosts: %d | Alerts: %d\n\n", colorCyan, colorReset, view.HostCount, view.AlertCount)
}

func valueText(it output.Item) string {
	switch {
	case it.Unit != "":
		return fmt.Sprintf("%.1f%s", it.Value, it.Unit)
	case it.Note != "":
		return truncate(it.Note, 25)
	case it.Value != 0:
		return fmt.Sprintf("%.1f", it.Value)
	default:
		return "0"
	}
}

func marker(status string) string {
	switch status {
	case output.StatusHealthy:
		return " " + colorFor(status) + "✓" + colorReset
	case output.StatusWarning:
		return " " + colorFor(status) + "!" + colorReset
	case output.StatusCritical:
		return " " + colorFor(status) + "X" + colorReset
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func colorFor(status string) string {
	switch status {
	case output.StatusWarning:
		return colorYellow
	case output.StatusCritical:
		return colorRed
	default:
		return colorGreen
	}
}
