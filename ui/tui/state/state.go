package state

import (
	"time"

	"netmon/internal/output"
)

type Page int

const (
	PageMenu Page = iota
	PageConsole
	PageDashboard
	PageServer
	PageHosts
	PageAlerts
	PageInterfaces
)

// AppState holds the latest report and what the UI derived from it.
type AppState struct {
	Report      output.ReportInput
	View        output.DashboardView
	LastUpdate  time.Time
	Err         error
	CPUHistory  []float64
	ConsoleLogs []string
	CurrentPage Page
}
