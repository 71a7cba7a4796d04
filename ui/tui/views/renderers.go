package views

import (
	"netmon/ui/tui/state"
)

func RenderMenu(s state.AppState, width, height, cursor int, animCursor float64, mouseX, mouseY int) string {
	return MenuView{}.Render(s, ViewProps{
		Width:      width,
		Height:     height,
		MenuCursor: cursor,
		AnimCursor: animCursor,
		MouseX:     mouseX,
		MouseY:     mouseY,
	})
}

func RenderDashboard(s state.AppState, spinnerView, chartView string) string {
	return DashboardView{}.Render(s, ViewProps{
		SpinnerView: spinnerView,
		ChartView:   chartView,
	})
}

func RenderRawConsole(s state.AppState, width, height, scrollY int) string {
	return ConsoleView{}.Render(s, ViewProps{
		Width:   width,
		Height:  height,
		ScrollY: scrollY,
	})
}

func RenderServer(s state.AppState, chartView string, width, height int) string {
	return ServerView{}.Render(s, ViewProps{
		Width:     width,
		Height:    height,
		ChartView: chartView,
	})
}

// RenderList draws the scrollable list pages.
func RenderList(v View, s state.AppState, width, height, scrollY int) string {
	return v.Render(s, ViewProps{
		Width:   width,
		Height:  height,
		ScrollY: scrollY,
	})
}
