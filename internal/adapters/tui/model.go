// Package tui provides the interactive install view.
package tui

import (
	"bytes"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/vito/midterm"
	"go.trai.ch/sprig/internal/adapters/telemetry"
	"go.trai.ch/sprig/internal/ui/output"
)

const (
	listWidthRatio = 0.35
	paneChrome     = 4
	// maxLogLines bounds the log tail shown per node.
	maxLogLines = 1000
)

// NodeStatus is the display state of one install node.
type NodeStatus string

// Node statuses.
const (
	StatusPending   NodeStatus = "pending"
	StatusRunning   NodeStatus = "running"
	StatusInstalled NodeStatus = "installed"
	StatusReused    NodeStatus = "reused"
	StatusFailed    NodeStatus = "failed"
)

// NodeRow is one install node in the list.
type NodeRow struct {
	Label  string
	Status NodeStatus
	// Phase is the phase currently or last running.
	Phase  string
	phases int
	// term interprets the pty output of the build, so progress bars
	// redrawn with carriage returns end up as one line.
	term   *midterm.Terminal
}

func newNodeRow(label string, width int) *NodeRow {
	n := &NodeRow{Label: label, Status: StatusPending, term: midterm.NewAutoResizingTerminal()}
	if width > 0 {
		n.term.ResizeX(width)
	}
	return n
}

func (n *NodeRow) appendLog(p []byte) {
	_, _ = n.term.Write(p)
}

// Log renders the last lines of the node's build output.
func (n *NodeRow) Log() string {
	var b bytes.Buffer
	used := n.term.UsedHeight()
	first := max(0, used-maxLogLines)
	for row := first; row < used; row++ {
		if row > first {
			b.WriteByte('\n')
		}
		_ = n.term.RenderLine(&b, row)
	}
	return b.String()
}

// Model is the bubbletea model of the install view.
type Model struct {
	Nodes    []*NodeRow
	byLabel  map[string]*NodeRow
	nodeSpan map[string]*NodeRow
	Viewport viewport.Model
	Selected int
	// Follow moves the selection to the node that last started.
	Follow bool
	ready  bool
}

// NewModel creates an empty model whose colors suit w.
func NewModel(w io.Writer) *Model {
	if w == nil {
		w = os.Stderr
	}
	lipgloss.SetColorProfile(output.New(w).Profile)
	return &Model{
		byLabel:  make(map[string]*NodeRow),
		nodeSpan: make(map[string]*NodeRow),
		Viewport: viewport.New(0, 0),
		Follow:   true,
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Row returns the row for label.
func (m *Model) Row(label string) (*NodeRow, bool) {
	n, ok := m.byLabel[label]
	return n, ok
}

func (m *Model) selected() *NodeRow {
	if m.Selected >= 0 && m.Selected < len(m.Nodes) {
		return m.Nodes[m.Selected]
	}
	return nil
}

func (m *Model) refreshViewport() {
	n := m.selected()
	if n == nil {
		m.Viewport.SetContent("")
		return
	}
	m.Viewport.SetContent(n.Log())
	m.Viewport.GotoBottom()
}

func (m *Model) selectRow(i int) {
	if i < 0 || i >= len(m.Nodes) || i == m.Selected {
		return
	}
	m.Selected = i
	m.refreshViewport()
}

// Update applies a message to the model.
//
//nolint:cyclop // one case per message type
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "k", "up":
			m.Follow = false
			m.selectRow(m.Selected - 1)
		case "j", "down":
			m.Follow = false
			m.selectRow(m.Selected + 1)
		case "esc":
			m.Follow = true
		}

	case tea.WindowSizeMsg:
		listWidth := int(float64(msg.Width) * listWidthRatio)
		m.Viewport.Width = msg.Width - listWidth - paneChrome
		m.Viewport.Height = msg.Height - lipgloss.Height(titleStyle.Render("LOG")) - 1
		m.ready = true
		for _, n := range m.Nodes {
			n.term.ResizeX(max(1, m.Viewport.Width))
		}
		m.refreshViewport()

	case telemetry.MsgPlan:
		m.Nodes = make([]*NodeRow, len(msg.Nodes))
		m.byLabel = make(map[string]*NodeRow, len(msg.Nodes))
		m.nodeSpan = make(map[string]*NodeRow)
		for i, label := range msg.Nodes {
			m.Nodes[i] = newNodeRow(label, m.Viewport.Width)
			m.byLabel[label] = m.Nodes[i]
		}
		m.Selected = 0
		m.refreshViewport()

	case telemetry.MsgTaskStart:
		m.startSpan(msg)

	case telemetry.MsgTaskLog:
		if n, ok := m.nodeSpan[msg.SpanID]; ok {
			n.appendLog(msg.Data)
			if n == m.selected() {
				m.refreshViewport()
			}
		}

	case telemetry.MsgTaskComplete:
		m.completeSpan(msg)
	}
	return m, nil
}

func (m *Model) startSpan(msg telemetry.MsgTaskStart) {
	if parent, ok := m.nodeSpan[msg.ParentID]; ok {
		parent.Phase = msg.Name
		parent.phases++
		m.nodeSpan[msg.SpanID] = parent
		return
	}
	n, ok := m.byLabel[msg.Name]
	if !ok {
		return
	}
	n.Status = StatusRunning
	m.nodeSpan[msg.SpanID] = n
	if m.Follow {
		for i, row := range m.Nodes {
			if row == n {
				m.selectRow(i)
				break
			}
		}
	}
}

func (m *Model) completeSpan(msg telemetry.MsgTaskComplete) {
	n, ok := m.nodeSpan[msg.SpanID]
	if !ok {
		return
	}
	delete(m.nodeSpan, msg.SpanID)
	if n.Status != StatusRunning {
		return
	}
	// Phase spans end before their node span; only the node decides.
	if m.hasOpenSpan(n) {
		return
	}
	switch {
	case msg.Err != nil:
		n.Status = StatusFailed
	case n.phases == 0:
		n.Status = StatusReused
	default:
		n.Status = StatusInstalled
	}
}

func (m *Model) hasOpenSpan(n *NodeRow) bool {
	for _, row := range m.nodeSpan {
		if row == n {
			return true
		}
	}
	return false
}
