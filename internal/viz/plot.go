package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/simusolve/internal/solver"
)

// Plot draws one series with the default size.
func Plot(data []float64, caption string) string {
	if len(data) == 0 {
		return Subtle.Render("(no data)")
	}
	return asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
}

// PlotBench draws wall time per system size. sizes and ms must align.
func PlotBench(sizes []int, ms []float64) string {
	if len(sizes) == 0 {
		return Plot(nil, "")
	}
	caption := fmt.Sprintf("solve time (ms), n = %d … %d", sizes[0], sizes[len(sizes)-1])
	return asciigraph.Plot(ms,
		asciigraph.Height(12),
		asciigraph.Width(max(len(ms)*4, 40)),
		asciigraph.Caption(caption),
	)
}

// PlotSchedule draws rows processed per round and block count per round.
func PlotSchedule(events []solver.RoundEvent) string {
	var rows, blocks []float64
	for _, ev := range events {
		if ev.Round == solver.BootstrapRound {
			continue
		}
		l := ev.Before
		if ev.Forked {
			l.BlockCount *= 2
		}
		rows = append(rows, float64(l.ActiveRows()))
		blocks = append(blocks, float64(l.BlockCount))
	}
	if len(rows) == 0 {
		return Subtle.Render("(single equation, no rounds)")
	}
	return asciigraph.PlotMany([][]float64{rows, blocks},
		asciigraph.Height(10),
		asciigraph.Width(max(len(rows)*3, 40)),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Cyan),
		asciigraph.Caption("active rows (green) and blocks (cyan) per round"),
	)
}
