package linsys

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

func (s *System) dense() (*mat.Dense, *mat.VecDense) {
	return mat.NewDense(s.n, s.n, append([]float64(nil), s.coeffs...)),
		mat.NewVecDense(s.n, append([]float64(nil), s.consts...))
}

// Residual returns the infinity norm of A·x − b.
func Residual(s *System, x []float64) (float64, error) {
	if len(x) != s.n {
		return 0, configErr("solution", ErrDimensionMismatch, "got %d values for %d unknowns", len(x), s.n)
	}
	a, b := s.dense()
	var r mat.VecDense
	r.MulVec(a, mat.NewVecDense(s.n, append([]float64(nil), x...)))
	r.SubVec(&r, b)
	return mat.Norm(&r, math.Inf(1)), nil
}

// ReferenceSolve solves s with gonum's partially pivoted LU. Ill-conditioned
// systems still return the computed answer; only exact singularity fails.
func ReferenceSolve(s *System) ([]float64, error) {
	a, b := s.dense()
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, fmt.Errorf("linsys: reference solve: %w", err)
		}
	}
	return append([]float64(nil), x.RawVector().Data...), nil
}

// Condition estimates the condition number of the coefficient matrix.
func Condition(s *System) float64 {
	a, _ := s.dense()
	var lu mat.LU
	lu.Factorize(a)
	return lu.Cond()
}

// MaxDeviation is the largest absolute element difference between x and y.
func MaxDeviation(x, y []float64) float64 {
	if len(x) != len(y) {
		return math.Inf(1)
	}
	var worst float64
	for i := range x {
		worst = math.Max(worst, math.Abs(x[i]-y[i]))
	}
	return worst
}
