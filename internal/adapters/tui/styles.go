package tui

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/sprig/internal/ui/style"
)

var (
	listStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(style.Slate).
			MarginRight(1).
			PaddingRight(1)

	logStyle = lipgloss.NewStyle().
			PaddingLeft(1)

	pendingStyle = lipgloss.NewStyle().
			Foreground(style.Slate)

	runningStyle = lipgloss.NewStyle().
			Foreground(style.Iris).
			Bold(true)

	installedStyle = lipgloss.NewStyle().
			Foreground(style.Green)

	reusedStyle = lipgloss.NewStyle().
			Foreground(style.Slate).
			Faint(true)

	failedStyle = lipgloss.NewStyle().
			Foreground(style.Red)

	phaseStyle = lipgloss.NewStyle().
			Foreground(style.Slate).
			Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(style.Iris).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(style.Iris).
			Foreground(style.White)
)
