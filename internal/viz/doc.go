// Package viz renders solver output for the terminal: lipgloss-styled
// solution tables, asciigraph plots of benchmark and schedule series, and a
// Bubble Tea viewer for stepping through a solve's round schedule.
//
// # Trace viewer keys
//
//	←/→ or h/l - previous/next round
//	g/G        - first/last round
//	q          - quit
package viz
