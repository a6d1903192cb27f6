package linsys

// System is n equations in n unknowns. It never changes after New returns.
type System struct {
	n      int
	coeffs []float64 // row-major n×n
	consts []float64
}

// New copies coefficients and constants into a System. The coefficient matrix
// must be square and match the number of constants.
func New(coefficients [][]float64, constants []float64) (*System, error) {
	n := len(coefficients)
	if n == 0 {
		return nil, configErr("coefficients", ErrEmptySystem, "n must be at least 1")
	}
	if len(constants) != n {
		return nil, configErr("constants", ErrDimensionMismatch, "got %d constants for %d equations", len(constants), n)
	}
	s := &System{n: n, coeffs: make([]float64, n*n), consts: make([]float64, n)}
	for r, row := range coefficients {
		if len(row) != n {
			return nil, configErr("coefficients", ErrDimensionMismatch, "row %d has %d coefficients, want %d", r, len(row), n)
		}
		copy(s.coeffs[r*n:], row)
	}
	copy(s.consts, constants)
	return s, nil
}

// FromAugmented builds a System from rows laid out [constant, coeff_0, ...].
func FromAugmented(rows [][]float64) (*System, error) {
	n := len(rows)
	if n == 0 {
		return nil, configErr("rows", ErrEmptySystem, "n must be at least 1")
	}
	s := &System{n: n, coeffs: make([]float64, n*n), consts: make([]float64, n)}
	for r, row := range rows {
		if len(row) != n+1 {
			return nil, configErr("rows", ErrDimensionMismatch, "row %d has %d values, want %d", r, len(row), n+1)
		}
		s.consts[r] = row[0]
		copy(s.coeffs[r*n:], row[1:])
	}
	return s, nil
}

// N is the number of equations and unknowns.
func (s *System) N() int { return s.n }

func (s *System) Coefficient(row, col int) float64 { return s.coeffs[row*s.n+col] }

func (s *System) Constant(row int) float64 { return s.consts[row] }

// AugmentedRow appends row r as [constant, coeff_0, ..., coeff_{n-1}] to dst.
func (s *System) AugmentedRow(dst []float64, r int) []float64 {
	dst = append(dst, s.consts[r])
	return append(dst, s.coeffs[r*s.n:(r+1)*s.n]...)
}

// Coefficients returns a copy of the coefficient matrix.
func (s *System) Coefficients() [][]float64 {
	out := make([][]float64, s.n)
	for r := range out {
		out[r] = append([]float64(nil), s.coeffs[r*s.n:(r+1)*s.n]...)
	}
	return out
}

// Constants returns a copy of the constant terms.
func (s *System) Constants() []float64 {
	return append([]float64(nil), s.consts...)
}
