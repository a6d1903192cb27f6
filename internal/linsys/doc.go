// Package linsys models a dense square linear system and its text formats.
//
// A System is immutable once built. Each equation is carried as an augmented
// row [constant, coeff_0, ..., coeff_{n-1}]; the constant-first order is
// kept throughout the solver pipeline. The CSV reader and writer use the same
// order, one equation per line.
//
// Residual and ReferenceSolve use gonum's dense routines to check results
// produced by the block-fork solver.
package linsys
