// Package style provides shared UI styling primitives including brand colors
// and icons for consistent visual presentation across the CLI.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/sprig/internal/core/domain"
)

// Brand Colors.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	White  = lipgloss.Color("#FFFFFF")
	Ink    = lipgloss.Color("#0B0F19")
	Mist   = lipgloss.Color("#F6F7FB")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Tilde   = "~"
	Dot     = "●"
	Circle  = "○"
	Arrow   = "→"
)

// Markers used by the spec tree to show install state.
const (
	Installed    = "[+]"
	NotInstalled = "[-]"
	Upstream     = "[^]"
)

// OutcomeIcon returns the icon and color used to present an install outcome.
func OutcomeIcon(o domain.Outcome) (string, lipgloss.Color) {
	switch o {
	case domain.OutcomeInstalled:
		return Check, Green
	case domain.OutcomeReused:
		return Check, Slate
	case domain.OutcomeFailed:
		return Cross, Red
	case domain.OutcomeBlocked:
		return Tilde, Yellow
	case domain.OutcomeBusy:
		return Warning, Yellow
	default:
		return Circle, Slate
	}
}
