// Package solver solves dense linear systems on a compute session by
// block-fork Gaussian elimination.
//
// The working matrix holds 2·m rows of n+1 values, m being the next power of
// two at or above n. Each round eliminates the last active unknown from every
// block by normalizing rows on that column and subtracting neighbours. When a
// block's row count is a power of two it is first forked: a duplicate of the
// block, with its unknowns rotated, is written beside it so that each half
// can go on to isolate a different subset of unknowns. After n−1 rounds there
// are m blocks of one equation in one unknown each.
//
// Scheduler owns the host-side layout arithmetic and is independent of any
// device; Solver binds it to the kernels of package kernels.
package solver
