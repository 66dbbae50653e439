package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorBorder = lipgloss.Color("#4b5563")
	colorDimmed = lipgloss.Color("#6b7280")
	colorBright = lipgloss.Color("#f9fafb")
	colorHost   = lipgloss.Color("#f59e0b")
	colorEntry  = lipgloss.Color("#22c55e")
	colorRound  = lipgloss.Color("#2563eb")
	colorError  = lipgloss.Color("#dc2626")
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorBright)
	styleDimmed = lipgloss.NewStyle().Foreground(colorDimmed)
	styleInfo   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
	styleHost      = lipgloss.NewStyle().Bold(true).Foreground(colorHost)
	styleButton    = lipgloss.NewStyle().Bold(true).Foreground(colorEntry)
	styleCountdown = lipgloss.NewStyle().Bold(true).Foreground(colorRound)
	styleNotice    = lipgloss.NewStyle().Foreground(colorError)
)
