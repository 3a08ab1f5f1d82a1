package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/sprig/internal/ui/style"
)

// View renders the node list next to the log tail of the selected node.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.nodeList(), m.logPane())
}

func (m *Model) nodeList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.summary()) + "\n\n")
	for i, n := range m.Nodes {
		b.WriteString(m.renderRow(i, n) + "\n")
	}
	return listStyle.Render(b.String())
}

func (m *Model) summary() string {
	done := 0
	for _, n := range m.Nodes {
		if n.Status != StatusPending && n.Status != StatusRunning {
			done++
		}
	}
	return fmt.Sprintf("PACKAGES %d/%d", done, len(m.Nodes))
}

func (m *Model) renderRow(i int, n *NodeRow) string {
	icon, st := statusLook(n.Status)
	cursor := "  "
	if i == m.Selected {
		cursor = selectedStyle.Render("> ")
	}
	row := cursor + st.Render(icon+" "+n.Label)
	if n.Status == StatusRunning && n.Phase != "" {
		row += " " + phaseStyle.Render(n.Phase)
	}
	return row
}

func statusLook(s NodeStatus) (string, lipgloss.Style) {
	switch s {
	case StatusRunning:
		return style.Dot, runningStyle
	case StatusInstalled:
		return style.Check, installedStyle
	case StatusReused:
		return style.Check, reusedStyle
	case StatusFailed:
		return style.Cross, failedStyle
	default:
		return style.Circle, pendingStyle
	}
}

func (m *Model) logPane() string {
	header := titleStyle.Render("LOG")
	if n := m.selected(); n != nil {
		mode := "following"
		if !m.Follow {
			mode = "manual"
		}
		header = titleStyle.Render(fmt.Sprintf("LOG: %s (%s)", n.Label, mode))
	}
	return logStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, m.Viewport.View()))
}
