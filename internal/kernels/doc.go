// Package kernels holds the device kernels of the block-fork elimination.
//
// Every kernel addresses the working buffer as rows of totalColCount values,
// one augmented row [constant, coeff_0, ...] per row. A block is a run of
// rows starting at block·boundaryRowCount; work-items only touch the active
// window of their block, so blocks never interfere.
//
// Per round the solver issues Splitter (on power-of-two row counts),
// ScaleCalculator, Scaler and Eliminator. UnknownSolver and ResultCopier run
// once at the end.
package kernels
