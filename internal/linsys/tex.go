package linsys

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// WriteTeX writes s as LaTeX, one equation per line in the unknowns a_{i}:
//
//	1a_{0} + 2a_{1} = 4 \\
func WriteTeX(w io.Writer, s *System) error {
	bw := bufio.NewWriter(w)
	for r := 0; r < s.n; r++ {
		for c := 0; c < s.n; c++ {
			if c > 0 {
				bw.WriteString(" + ")
			}
			fmt.Fprintf(bw, "%sa_{%d}", strconv.FormatFloat(s.Coefficient(r, c), 'g', -1, 64), c)
		}
		fmt.Fprintf(bw, " = %s \\\\\n", strconv.FormatFloat(s.Constant(r), 'g', -1, 64))
	}
	return bw.Flush()
}

// WriteSolutionTeX writes one "a_{i} = value \\" line per unknown, rounded to
// four decimals.
func WriteSolutionTeX(w io.Writer, x []float64) error {
	bw := bufio.NewWriter(w)
	for i, v := range x {
		fmt.Fprintf(bw, "a_{%d} = %.4f \\\\\n", i, v)
	}
	return bw.Flush()
}
