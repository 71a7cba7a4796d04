package components

import (
	"netmon/ui/tui/styles"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HistoryLen is the number of samples a chart keeps.
const HistoryLen = 31

// HistoryChart plots a rolling 0-100 percentage series.
type HistoryChart struct {
	Title   string
	Chart   linechart.Model
	History []float64
	Width   int
	Height  int
}

func NewHistoryChart(title string, width, height int) *HistoryChart {
	// width, height, minX, maxX, minY, maxY
	lc := linechart.New(width, height, 0, HistoryLen-1, 0, 100)
	return &HistoryChart{
		Title:   title,
		Chart:   lc,
		History: make([]float64, 0, HistoryLen),
		Width:   width,
		Height:  height,
	}
}

func (c *HistoryChart) Init() tea.Cmd {
	return nil
}

func (c *HistoryChart) Push(value float64) {
	c.History = append(c.History, value)
	if len(c.History) > HistoryLen {
		c.History = c.History[1:]
	}
	c.redraw()
}

func (c *HistoryChart) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return c, nil
}

func (c *HistoryChart) Resize(w, h int) {
	c.Width = w
	c.Height = h
	c.Chart.Resize(w, h)
	c.redraw()
}

func (c *HistoryChart) redraw() {
	c.Chart.Clear()
	for i := 0; i < len(c.History)-1; i++ {
		c.Chart.DrawBrailleLine(
			canvas.Float64Point{X: float64(i), Y: c.History[i]},
			canvas.Float64Point{X: float64(i + 1), Y: c.History[i+1]},
		)
	}
	c.Chart.DrawXYAxisAndLabel()
}

// Plot is the bare chart, for embedding in other cards.
func (c *HistoryChart) Plot() string {
	return c.Chart.View()
}

func (c *HistoryChart) View() string {
	return styles.CardStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(c.Title),
			c.Chart.View(),
		),
	)
}
