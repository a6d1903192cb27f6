package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/simusolve/internal/solver"
)

const blocksPerLine = 8

// TraceModel is a Bubble Tea model stepping through the round schedule of
// one solve.
type TraceModel struct {
	n, m   int
	events []solver.RoundEvent
	cursor int
	width  int
}

func NewTraceModel(n int, events []solver.RoundEvent) TraceModel {
	return TraceModel{n: n, m: solver.NextPow2(n), events: events, width: 80}
}

func (t TraceModel) Cursor() int { return t.cursor }

func (t TraceModel) Init() tea.Cmd { return nil }

func (t TraceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return t, tea.Quit
		case "right", "l", "down", "j", " ":
			if t.cursor < len(t.events)-1 {
				t.cursor++
			}
		case "left", "h", "up", "k":
			if t.cursor > 0 {
				t.cursor--
			}
		case "g", "home":
			t.cursor = 0
		case "G", "end":
			t.cursor = max(len(t.events)-1, 0)
		}
	case tea.WindowSizeMsg:
		t.width = msg.Width
	}
	return t, nil
}

func (t TraceModel) View() string {
	var b strings.Builder
	b.WriteString(Title.Render(fmt.Sprintf("schedule for n=%d (padded to %d)", t.n, t.m)))
	b.WriteString("\n\n")

	if len(t.events) == 0 {
		b.WriteString(Subtle.Render("single equation: back-substitution only"))
		b.WriteString("\n\n" + KeyHint.Render("q quit"))
		return b.String()
	}

	ev := t.events[t.cursor]
	name := fmt.Sprintf("round %d of %d", ev.Round, t.n-1)
	if ev.Round == solver.BootstrapRound {
		name = "bootstrap fork"
	}
	status := Subtle.Render("no fork")
	if ev.Forked {
		status = Warn.Render("forked")
	}
	b.WriteString(Value.Render(name) + "  " + status + "\n")
	b.WriteString(ProgressBar(float64(t.cursor+1)/float64(len(t.events)), min(40, t.width-2)) + "\n\n")

	b.WriteString(Label.Render("before ") + ev.Before.String() + "\n")
	b.WriteString(Label.Render("after  ") + ev.After.String() + "\n\n")
	b.WriteString(renderBlocks(ev.After))
	b.WriteString("\n\n" + KeyHint.Render("←/→ step  g/G first/last  q quit"))
	return b.String()
}

// renderBlocks draws each block's row span, active rows solid.
func renderBlocks(l solver.Layout) string {
	span := min(l.BoundaryRowCount, 16)
	active := l.RowCount * span / max(l.BoundaryRowCount, 1)
	if l.RowCount > 0 {
		active = max(active, 1)
	}
	cell := activeCell.Render(strings.Repeat("█", active)) + spareCell.Render(strings.Repeat("░", span-active))

	var lines []string
	for start := 0; start < l.BlockCount; start += blocksPerLine {
		end := min(start+blocksPerLine, l.BlockCount)
		cells := make([]string, end-start)
		for i := range cells {
			cells[i] = cell
		}
		lines = append(lines, strings.Join(cells, " "))
	}
	return strings.Join(lines, "\n")
}

// RunTrace opens the interactive viewer on the terminal.
func RunTrace(n int, events []solver.RoundEvent) error {
	_, err := tea.NewProgram(NewTraceModel(n, events), tea.WithAltScreen()).Run()
	return err
}
