package kernels

import "github.com/san-kum/simusolve/internal/compute"

// split forks every block in two. Global range: (blocks, rows, cols).
//
// With split size p (rowCount), block b spans 2p rows from b·2p and its
// duplicate starts p rows in. The constant column is copied as is. The
// duplicate's coefficients are rotated so the trailing p/2 active unknowns
// come first: eliminating from the right, the original keeps the leading
// unknowns and the duplicate keeps the trailing ones.
//
// The dispatched row range may be shorter than p (the bootstrap fork copies
// only the populated rows).
func split(item compute.WorkItem, args compute.Args) {
	buf := args.Buffer(0)
	rowCount := args.Int(1)
	colCount := args.Int(2)
	totalCols := args.Int(3)

	block, row, col := item.ID(0), item.ID(1), item.ID(2)
	src := (block*2*rowCount + row) * totalCols
	dst := src + rowCount*totalCols

	if col == 0 {
		buf[dst] = buf[src]
		return
	}
	span := colCount - 1
	from := (col - 1 + span - rowCount/2) % span
	buf[dst+col] = buf[src+1+from]
}
