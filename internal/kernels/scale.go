package kernels

import "github.com/san-kum/simusolve/internal/compute"

// calculateScale stores the factor normalizing the target column of each
// active row to one. Global range: (blocks, rows).
func calculateScale(item compute.WorkItem, args compute.Args) {
	src := args.Buffer(0)
	scale := args.Buffer(1)
	boundary := args.Int(2)
	target := args.Int(3)
	totalCols := args.Int(4)

	row := item.ID(0)*boundary + item.ID(1)
	scale[row] = 1 / src[row*totalCols+target]
}

// applyScale multiplies each active value by its row factor, in place.
// Global range: (blocks, rows, cols).
func applyScale(item compute.WorkItem, args compute.Args) {
	src := args.Buffer(0)
	scale := args.Buffer(1)
	boundary := args.Int(2)
	totalCols := args.Int(3)

	row := item.ID(0)*boundary + item.ID(1)
	src[row*totalCols+item.ID(2)] *= scale[row]
}
