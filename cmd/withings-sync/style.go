package main

import "charm.land/lipgloss/v2"

var (
	colorTeal = lipgloss.Color("#00F19F")
	colorRed  = lipgloss.Color("#FF0026")
	colorDim  = lipgloss.Color("#666666")
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(colorTeal).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(colorDim).Width(18)
	okStyle    = lipgloss.NewStyle().Foreground(colorTeal)
	badStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}
