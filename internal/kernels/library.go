package kernels

import "github.com/san-kum/simusolve/internal/compute"

// LibraryName names the built program.
const LibraryName = "simusolve"

// Kernel entry names.
const (
	Splitter        = "splitter"
	ScaleCalculator = "scale_calculator"
	Scaler          = "scaler"
	Eliminator      = "eliminator"
	UnknownSolver   = "unknown_solver"
	ResultCopier    = "result_copier"
	BufferCleaner   = "buffer_cleaner"
)

// Declared parameter names.
const (
	ArgBuffer           = "buffer"
	ArgSrcBuffer        = "srcBuffer"
	ArgDesBuffer        = "desBuffer"
	ArgScaleBuffer      = "scaleBuffer"
	ArgValueBuffer      = "valueBuffer"
	ArgCoeffBuffer      = "coeffBuffer"
	ArgOutputBuffer     = "outputBuffer"
	ArgRowCount         = "rowCount"
	ArgColCount         = "colCount"
	ArgTotalColCount    = "totalColCount"
	ArgBoundaryRowCount = "boundaryRowCount"
	ArgTargetValue      = "targetValue"
	ArgCenter           = "center"
	ArgCoeffCountDiff   = "coeffCountDiff"
)

func buffer(name string) compute.Param { return compute.Param{Name: name, Kind: compute.ParamBuffer} }
func integer(name string) compute.Param { return compute.Param{Name: name, Kind: compute.ParamInt} }

// Library returns the kernel library; build it once per device.
func Library() *compute.Library {
	return &compute.Library{
		Name: LibraryName,
		Kernels: []compute.KernelSpec{
			{
				Name:   Splitter,
				Params: []compute.Param{buffer(ArgBuffer), integer(ArgRowCount), integer(ArgColCount), integer(ArgTotalColCount)},
				Func:   split,
			},
			{
				Name: ScaleCalculator,
				Params: []compute.Param{buffer(ArgSrcBuffer), buffer(ArgScaleBuffer), integer(ArgBoundaryRowCount),
					integer(ArgTargetValue), integer(ArgTotalColCount)},
				Func: calculateScale,
			},
			{
				Name: Scaler,
				Params: []compute.Param{buffer(ArgSrcBuffer), buffer(ArgScaleBuffer), integer(ArgBoundaryRowCount),
					integer(ArgTotalColCount)},
				Func: applyScale,
			},
			{
				Name: Eliminator,
				Params: []compute.Param{buffer(ArgSrcBuffer), buffer(ArgDesBuffer), integer(ArgBoundaryRowCount),
					integer(ArgTotalColCount)},
				Func: eliminate,
			},
			{
				Name:   UnknownSolver,
				Params: []compute.Param{buffer(ArgValueBuffer), integer(ArgBoundaryRowCount), integer(ArgTotalColCount)},
				Func:   solveUnknown,
			},
			{
				Name: ResultCopier,
				Params: []compute.Param{buffer(ArgOutputBuffer), buffer(ArgCoeffBuffer), integer(ArgBoundaryRowCount),
					integer(ArgTotalColCount), integer(ArgCenter), integer(ArgCoeffCountDiff)},
				Func: copyResult,
			},
			{
				Name:   BufferCleaner,
				Params: []compute.Param{buffer(ArgBuffer)},
				Func:   clean,
			},
		},
	}
}
