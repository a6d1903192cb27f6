package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SolutionTable lists x with one row per unknown. When expected is non-nil
// each row also shows the reference value and the absolute deviation,
// coloured against tol.
func SolutionTable(x, expected []float64, tol float64) string {
	var rows []string
	head := fmt.Sprintf("%-6s %22s", "i", "x")
	if expected != nil {
		head += fmt.Sprintf(" %22s %12s", "expected", "|Δ|")
	}
	rows = append(rows, Header.Render(head))

	for i, v := range x {
		line := Label.Render(fmt.Sprintf("%-6d", i)) + " " + Value.Render(fmt.Sprintf("%22.15g", v))
		if expected != nil && i < len(expected) {
			d := math.Abs(v - expected[i])
			style := Good
			if math.IsNaN(d) || d > tol {
				style = Bad
			}
			line += " " + Subtle.Render(fmt.Sprintf("%22.15g", expected[i])) + " " + style.Render(fmt.Sprintf("%12.3e", d))
		}
		rows = append(rows, line)
	}
	return Panel.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// KeyValues renders a titled panel of label/value pairs in the given order.
func KeyValues(title string, pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, len(p[0]))
	}
	lines := []string{Title.Render(title)}
	for _, p := range pairs {
		lines = append(lines, Label.Render(p[0]+strings.Repeat(" ", width-len(p[0])))+"  "+Value.Render(p[1]))
	}
	return Panel.Render(strings.Join(lines, "\n"))
}
