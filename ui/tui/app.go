package tui

import (
	"context"
	"fmt"
	"time"

	"netmon/internal/collector"
	"netmon/internal/model"
	"netmon/internal/output"
	"netmon/ui/tui/components"
	"netmon/ui/tui/state"
	"netmon/ui/tui/views"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

const (
	maxConsoleLogs = 100
	loadTimeout    = 10 * time.Second
)

// Source produces one report per refresh.
type Source interface {
	Load(ctx context.Context) (output.ReportInput, error)
}

// MainModel is the Bubble Tea Model acting as the Controller
type MainModel struct {
	source     Source
	interval   time.Duration
	state      state.AppState
	spinner    spinner.Model
	cpuChart   *components.HistoryChart
	menuCursor int
	animCursor float64
	velocity   float64
	spring     harmonica.Spring
	scrollY    int
	mouseX     int
	mouseY     int
	quitting   bool
	width      int
	height     int
}

// Messages
type TickMsg time.Time
type AnimateMsg time.Time
type ReportLoadedMsg struct {
	Report output.ReportInput
	Err    error
}

func InitialModel(source Source, interval time.Duration) MainModel {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	// High frequency with near-critical damping keeps the cursor snappy
	// without overshoot.
	spring := harmonica.NewSpring(harmonica.FPS(60), 12.0, 0.9)

	return MainModel{
		source:   source,
		interval: interval,
		spinner:  s,
		cpuChart: components.NewHistoryChart("CPU History", 30, 10),
		spring:   spring,
		state: state.AppState{
			CPUHistory:  make([]float64, 0, components.HistoryLen),
			CurrentPage: state.PageMenu,
		},
	}
}

func (m *MainModel) Init() tea.Cmd {
	zone.NewGlobal()
	return tea.Batch(
		m.spinner.Tick,
		loadReportCmd(m.source),
		tickCmd(m.interval),
		animateCmd(),
	)
}

// Commands
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func animateCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*16, func(t time.Time) tea.Msg {
		return AnimateMsg(t)
	})
}

func loadReportCmd(src Source) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		in, err := src.Load(ctx)
		return ReportLoadedMsg{Report: in, Err: err}
	}
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case AnimateMsg:
		return m.handleAnimateMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)

	case TickMsg:
		return m, tea.Batch(loadReportCmd(m.source), tickCmd(m.interval))

	case ReportLoadedMsg:
		return m.handleReportLoadedMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	}

	return m, nil
}

func (m *MainModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	if m.state.CurrentPage == state.PageMenu {
		switch msg.String() {
		case "up", "k":
			if m.menuCursor > 0 {
				m.menuCursor--
			}
		case "down", "j":
			if m.menuCursor < len(views.MenuOptions)-1 {
				m.menuCursor++
			}
		case "enter":
			m.navigateTo(m.menuCursor)
		}
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.scrollY > 0 {
			m.scrollY--
		}
	case "down", "j":
		m.scrollY++
	case "b", "esc", "backspace":
		m.state.CurrentPage = state.PageMenu
		m.scrollY = 0
	}
	return m, nil
}

// navigateTo opens the page behind menu entry cursor.
func (m *MainModel) navigateTo(cursor int) {
	if cursor < 0 || cursor >= len(views.MenuOptions) {
		return
	}
	m.state.CurrentPage = state.Page(cursor + 1)
	m.scrollY = 0
}

func (m *MainModel) handleAnimateMsg(msg AnimateMsg) (tea.Model, tea.Cmd) {
	m.animCursor, m.velocity = m.spring.Update(m.animCursor, float64(m.menuCursor), m.velocity)
	return m, animateCmd()
}

func (m *MainModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	newW := msg.Width/2 - 6
	if newW > 10 {
		m.cpuChart.Resize(newW, 10)
	}
	return m, nil
}

func probeValue(ms []model.Metric, name string) (float64, bool) {
	for _, mt := range ms {
		if mt.Name == name {
			return mt.Value.Float()
		}
	}
	return 0, false
}

func (m *MainModel) handleReportLoadedMsg(msg ReportLoadedMsg) (tea.Model, tea.Cmd) {
	now := time.Now()
	m.state.Err = msg.Err
	if msg.Err != nil {
		m.appendLog(fmt.Sprintf("[%s] refresh failed: %v", now.Format("15:04:05"), msg.Err))
		// Keep the last good report when the failed one carries nothing new.
		if len(msg.Report.Probe) == 0 && len(msg.Report.Hosts) == 0 {
			return m, nil
		}
	}

	in := msg.Report
	m.state.Report = in
	m.state.View = output.BuildDashboard(in)
	m.state.LastUpdate = now

	line := fmt.Sprintf("[%s] Hosts: %d | Alerts: %d", now.Format("15:04:05"), m.state.View.HostCount, m.state.View.AlertCount)
	if cpu, ok := probeValue(in.Probe, collector.MetricCPU); ok {
		m.state.CPUHistory = append(m.state.CPUHistory, cpu)
		if len(m.state.CPUHistory) > components.HistoryLen {
			m.state.CPUHistory = m.state.CPUHistory[1:]
		}
		m.cpuChart.Push(cpu)

		mem, _ := probeValue(in.Probe, collector.MetricMemory)
		disk, _ := probeValue(in.Probe, collector.MetricDisk)
		line = fmt.Sprintf("[%s] CPU: %.1f%% | RAM: %.1f%% | Disk: %.1f%% | Hosts: %d | Alerts: %d",
			now.Format("15:04:05"), cpu, mem, disk, m.state.View.HostCount, m.state.View.AlertCount)
	}
	m.appendLog(line)
	return m, nil
}

func (m *MainModel) appendLog(line string) {
	m.state.ConsoleLogs = append(m.state.ConsoleLogs, line)
	if len(m.state.ConsoleLogs) > maxConsoleLogs {
		m.state.ConsoleLogs = m.state.ConsoleLogs[1:]
	}
}

func (m *MainModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	m.mouseX = msg.X
	m.mouseY = msg.Y

	if msg.Action == tea.MouseActionRelease && m.state.CurrentPage == state.PageMenu {
		for i := range views.MenuOptions {
			if zone.Get(views.MenuZone(i)).InBounds(msg) {
				m.menuCursor = i
				m.navigateTo(i)
				return m, nil
			}
		}
	}
	if msg.Action == tea.MouseActionRelease && m.state.CurrentPage == state.PageDashboard {
		switch {
		case zone.Get("server_box").InBounds(msg):
			m.navigateTo(int(state.PageServer) - 1)
		case zone.Get("alerts_box").InBounds(msg):
			m.navigateTo(int(state.PageAlerts) - 1)
		}
	}
	return m, nil
}

func (m *MainModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		return views.RenderMenu(m.state, m.width, m.height, m.menuCursor, m.animCursor, m.mouseX, m.mouseY)
	case state.PageDashboard:
		return views.RenderDashboard(m.state, m.spinner.View(), m.cpuChart.Plot())
	case state.PageConsole:
		return views.RenderRawConsole(m.state, m.width, m.height, m.scrollY)
	case state.PageServer:
		return views.RenderServer(m.state, m.cpuChart.Plot(), m.width, m.height)
	case state.PageHosts:
		return views.RenderList(views.HostsView{}, m.state, m.width, m.height, m.scrollY)
	case state.PageAlerts:
		return views.RenderList(views.AlertsView{}, m.state, m.width, m.height, m.scrollY)
	case state.PageInterfaces:
		return views.RenderList(views.InterfacesView{}, m.state, m.width, m.height, m.scrollY)
	default:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Bold(true).Render("Unknown view\n\nPress 'b' to go back"),
		)
	}
}

// Start runs the TUI until the user quits, refreshing from source every
// interval.
func Start(source Source, interval time.Duration) error {
	m := InitialModel(source, interval)
	p := tea.NewProgram(
		&m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
