package kernels

import "github.com/san-kum/simusolve/internal/compute"

// solveUnknown divides the constant of each block's final record by its only
// coefficient, leaving the unknown in the constant slot. No pivot guard: a
// zero coefficient yields Inf or NaN. Global range: (blocks).
func solveUnknown(item compute.WorkItem, args compute.Args) {
	values := args.Buffer(0)
	boundary := args.Int(1)
	totalCols := args.Int(2)

	at := item.ID(0) * boundary * totalCols
	values[at] /= values[at+1]
}

// copyResult gathers the solved unknowns into the output vector. Blocks at
// or past center are shifted by coeffCountDiff to skip the duplicates left by
// the bootstrap fork. Global range: (n).
func copyResult(item compute.WorkItem, args compute.Args) {
	out := args.Buffer(0)
	coeff := args.Buffer(1)
	boundary := args.Int(2)
	totalCols := args.Int(3)
	center := args.Int(4)
	diff := args.Int(5)

	i := item.ID(0)
	block := i
	if i >= center {
		block += diff
	}
	out[i] = coeff[block*boundary*totalCols]
}

// clean zeroes a buffer. Global range: (len).
func clean(item compute.WorkItem, args compute.Args) {
	args.Buffer(0)[item.ID(0)] = 0
}
