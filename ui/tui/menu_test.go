package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"netmon/internal/aggregate"
	"netmon/internal/collector"
	"netmon/internal/model"
	"netmon/internal/output"
	"netmon/ui/tui/state"
	"netmon/ui/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
)

// MockSource for testing
type MockSource struct {
	report output.ReportInput
	err    error
}

func (m MockSource) Load(context.Context) (output.ReportInput, error) {
	return m.report, m.err
}

func sampleReport() output.ReportInput {
	now := time.Now()
	meta := model.Meta{HostID: "h1", DeviceID: "edge-01", Iface: model.GlobalIface}
	eth := model.Meta{HostID: "h1", DeviceID: "edge-01", Iface: "eth0"}
	return output.ReportInput{
		Generated: now,
		Probe: []model.Metric{
			{Timestamp: now, Meta: meta, Name: collector.MetricCPU, Value: model.Number(42)},
			{Timestamp: now, Meta: meta, Name: collector.MetricMemory, Value: model.Number(61)},
			{Timestamp: now, Meta: eth, Name: "Interface eth0: " + collector.MetricOperStatus, Value: model.Number(1)},
		},
		Hosts: []aggregate.HostSummary{
			{HostID: "h1", DeviceID: "core-sw-01", LastSeen: now, InterfaceCount: 4, Severity: "critical"},
		},
		Alerts: []model.Event{
			{HostID: "h1", DeviceID: "core-sw-01", Metric: "CPU utilization", Severity: "critical", Value: model.Number(97), DetectedAt: now},
		},
	}
}

func TestMenuNavigation(t *testing.T) {
	model := InitialModel(MockSource{}, time.Second)

	if model.menuCursor != 0 {
		t.Errorf("Expected initial menu cursor 0, got %d", model.menuCursor)
	}
	if model.state.CurrentPage != state.PageMenu {
		t.Errorf("Expected initial page PageMenu, got %v", model.state.CurrentPage)
	}

	updatedModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	m := updatedModel.(*MainModel)
	if m.menuCursor != 1 {
		t.Errorf("Expected menu cursor 1 after Down key, got %d", m.menuCursor)
	}

	updatedModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updatedModel.(*MainModel)
	if m.menuCursor != 0 {
		t.Errorf("Expected menu cursor 0 after Up key, got %d", m.menuCursor)
	}

	for i := 0; i < len(views.MenuOptions)+3; i++ {
		m.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	if m.menuCursor != len(views.MenuOptions)-1 {
		t.Errorf("Expected cursor to stop at last option %d, got %d", len(views.MenuOptions)-1, m.menuCursor)
	}
}

func TestMenuAnimationLogic(t *testing.T) {
	model := InitialModel(MockSource{}, time.Second)
	model.menuCursor = 1

	if model.animCursor != 0 {
		t.Errorf("Expected initial animCursor 0, got %f", model.animCursor)
	}

	animateMsg := AnimateMsg(time.Now())
	updatedModel, _ := model.Update(animateMsg)
	m := updatedModel.(*MainModel)

	if m.animCursor <= 0 {
		t.Errorf("Expected animCursor to increase after animation frame, got %f", m.animCursor)
	}
	if m.animCursor >= 1.0 {
		t.Errorf("Expected animCursor to not reach target immediately, got %f", m.animCursor)
	}

	updatedModel, _ = m.Update(animateMsg)
	m = updatedModel.(*MainModel)
	prevCursor := m.animCursor

	updatedModel, _ = m.Update(animateMsg)
	m = updatedModel.(*MainModel)

	if m.animCursor <= prevCursor {
		t.Errorf("Expected animCursor to continue increasing, got %f (prev %f)", m.animCursor, prevCursor)
	}
}

func TestPageTransition(t *testing.T) {
	tests := []struct {
		cursor int
		want   state.Page
	}{
		{0, state.PageConsole},
		{1, state.PageDashboard},
		{2, state.PageServer},
		{3, state.PageHosts},
		{4, state.PageAlerts},
		{5, state.PageInterfaces},
	}

	for _, tt := range tests {
		model := InitialModel(MockSource{}, time.Second)
		model.menuCursor = tt.cursor
		updatedModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m := updatedModel.(*MainModel)
		if m.state.CurrentPage != tt.want {
			t.Errorf("cursor %d: expected page %v, got %v", tt.cursor, tt.want, m.state.CurrentPage)
		}

		updatedModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'b'}})
		m = updatedModel.(*MainModel)
		if m.state.CurrentPage != state.PageMenu {
			t.Errorf("cursor %d: expected page to change back to PageMenu, got %v", tt.cursor, m.state.CurrentPage)
		}
	}
}

func TestReportLoaded(t *testing.T) {
	model := InitialModel(MockSource{}, time.Second)

	updatedModel, _ := model.Update(ReportLoadedMsg{Report: sampleReport()})
	m := updatedModel.(*MainModel)

	if len(m.state.CPUHistory) != 1 || m.state.CPUHistory[0] != 42 {
		t.Errorf("Expected CPU history [42], got %v", m.state.CPUHistory)
	}
	if m.state.View.HostCount != 1 || m.state.View.AlertCount != 1 {
		t.Errorf("Expected 1 host and 1 alert, got %d and %d", m.state.View.HostCount, m.state.View.AlertCount)
	}
	if m.state.View.SectionByID(output.SectionProbe) == nil {
		t.Error("Expected a probe section in the dashboard view")
	}
	if len(m.state.ConsoleLogs) != 1 || !strings.Contains(m.state.ConsoleLogs[0], "CPU: 42.0%") {
		t.Errorf("Unexpected console log: %v", m.state.ConsoleLogs)
	}
}

func TestReportErrorKeepsLastReport(t *testing.T) {
	model := InitialModel(MockSource{}, time.Second)
	model.Update(ReportLoadedMsg{Report: sampleReport()})

	updatedModel, _ := model.Update(ReportLoadedMsg{Err: errors.New("store unreachable")})
	m := updatedModel.(*MainModel)

	if m.state.Err == nil {
		t.Fatal("Expected error to be recorded")
	}
	if len(m.state.Report.Hosts) != 1 {
		t.Errorf("Expected last report to be kept, got %d hosts", len(m.state.Report.Hosts))
	}
	last := m.state.ConsoleLogs[len(m.state.ConsoleLogs)-1]
	if !strings.Contains(last, "refresh failed: store unreachable") {
		t.Errorf("Unexpected console log: %q", last)
	}
}

func TestTickLoadsReport(t *testing.T) {
	model := InitialModel(MockSource{report: sampleReport()}, time.Second)
	msg := loadReportCmd(model.source)()
	loaded, ok := msg.(ReportLoadedMsg)
	if !ok {
		t.Fatalf("Expected ReportLoadedMsg, got %T", msg)
	}
	if len(loaded.Report.Probe) != 3 {
		t.Errorf("Expected 3 probe metrics, got %d", len(loaded.Report.Probe))
	}
}

func TestPagesRender(t *testing.T) {
	zone.NewGlobal()
	model := InitialModel(MockSource{}, time.Second)
	model.Update(tea.WindowSizeMsg{Width: 160, Height: 50})
	model.Update(ReportLoadedMsg{Report: sampleReport()})

	tests := []struct {
		page state.Page
		want string
	}{
		{state.PageMenu, "Host Inventory"},
		{state.PageConsole, "Live Console View"},
		{state.PageDashboard, "NetMon TUI"},
		{state.PageServer, "edge-01"},
		{state.PageHosts, "core-sw-01"},
		{state.PageAlerts, "CPU utilization"},
		{state.PageInterfaces, "eth0"},
	}

	for _, tt := range tests {
		model.state.CurrentPage = tt.page
		if out := model.View(); !strings.Contains(out, tt.want) {
			t.Errorf("page %v: expected view to contain %q", tt.page, tt.want)
		}
	}
}
