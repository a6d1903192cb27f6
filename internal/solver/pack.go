package solver

import (
	"math/bits"

	"github.com/san-kum/simusolve/internal/linsys"
)

// NextPow2 returns the smallest power of two not below n; 1 for n ≤ 1.
func NextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Pack lays s into a zeroed working matrix of 2·m rows by n+1 columns. Row r
// holds s's augmented row r; rows n and beyond are reserved for forks.
func Pack(s *linsys.System) ([]float64, error) {
	if s == nil || s.N() == 0 {
		return nil, &linsys.ConfigurationError{Field: "system", Reason: "n must be at least 1", Err: linsys.ErrEmptySystem}
	}
	n := s.N()
	width := n + 1
	out := make([]float64, 2*NextPow2(n)*width)
	for r := 0; r < n; r++ {
		s.AugmentedRow(out[r*width:r*width], r)
	}
	return out, nil
}
