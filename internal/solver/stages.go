package solver

import (
	"errors"
	"fmt"

	"github.com/san-kum/simusolve/internal/compute"
	"github.com/san-kum/simusolve/internal/kernels"
)

// binding is a kernel instance with its parameter positions resolved once.
type binding struct {
	kernel *compute.Kernel
	index  map[string]int
}

func bind(p *compute.Program, name string, params ...string) (*binding, error) {
	k, err := p.Kernel(name)
	if err != nil {
		return nil, err
	}
	idx, err := k.ArgIndices(params...)
	if err != nil {
		return nil, err
	}
	b := &binding{kernel: k, index: make(map[string]int, len(params))}
	for i, param := range params {
		b.index[param] = idx[i]
	}
	return b, nil
}

func (b *binding) buffer(name string, buf compute.Buffer) error {
	return b.kernel.SetBuffer(b.index[name], buf)
}

func (b *binding) int(name string, v int) error {
	return b.kernel.SetInt(b.index[name], v)
}

// bufferPair is the source/destination pair of the elimination ping-pong.
type bufferPair struct {
	src, dst compute.Buffer
}

func (p *bufferPair) swap() { p.src, p.dst = p.dst, p.src }

// deviceStages runs the scheduler's stages as kernel dispatches on one queue.
type deviceStages struct {
	queue compute.Queue
	n, m  int
	scrub bool

	pair   bufferPair
	scale  compute.Buffer
	output compute.Buffer
	owned  []compute.Buffer

	splitter, scaleCalc, scaler, eliminator *binding
	unknownSolver, resultCopier, cleaner    *binding
}

func newDeviceStages(sess *compute.Session, prog *compute.Program, packed []float64, n int, scrub bool) (_ *deviceStages, err error) {
	m := NextPow2(n)
	width := n + 1
	st := &deviceStages{queue: sess.Queue(), n: n, m: m, scrub: scrub}
	defer func() {
		if err != nil {
			err = errors.Join(err, st.release())
		}
	}()

	alloc := func(values int, flags compute.MemFlags) (compute.Buffer, error) {
		buf, err := sess.Device().Allocate(values*8, flags)
		if err != nil {
			return nil, err
		}
		st.owned = append(st.owned, buf)
		return buf, nil
	}
	if st.pair.src, err = alloc(2*m*width, compute.MemReadWrite); err != nil {
		return nil, err
	}
	if st.pair.dst, err = alloc(2*m*width, compute.MemHostNoAccess); err != nil {
		return nil, err
	}
	if st.scale, err = alloc(2*m, compute.MemHostNoAccess); err != nil {
		return nil, err
	}
	if st.output, err = alloc(n, compute.MemHostReadOnly); err != nil {
		return nil, err
	}
	if err = st.queue.Write(st.pair.src, packed); err != nil {
		return nil, err
	}
	if err = st.bindAll(prog, width); err != nil {
		return nil, err
	}
	return st, nil
}

// bindAll creates the kernel instances and sets every argument that stays
// fixed for the whole solve.
func (st *deviceStages) bindAll(prog *compute.Program, width int) error {
	var err error
	if st.splitter, err = bind(prog, kernels.Splitter,
		kernels.ArgBuffer, kernels.ArgRowCount, kernels.ArgColCount, kernels.ArgTotalColCount); err != nil {
		return err
	}
	if st.scaleCalc, err = bind(prog, kernels.ScaleCalculator,
		kernels.ArgSrcBuffer, kernels.ArgScaleBuffer, kernels.ArgBoundaryRowCount,
		kernels.ArgTargetValue, kernels.ArgTotalColCount); err != nil {
		return err
	}
	if st.scaler, err = bind(prog, kernels.Scaler,
		kernels.ArgSrcBuffer, kernels.ArgScaleBuffer, kernels.ArgBoundaryRowCount, kernels.ArgTotalColCount); err != nil {
		return err
	}
	if st.eliminator, err = bind(prog, kernels.Eliminator,
		kernels.ArgSrcBuffer, kernels.ArgDesBuffer, kernels.ArgBoundaryRowCount, kernels.ArgTotalColCount); err != nil {
		return err
	}
	if st.unknownSolver, err = bind(prog, kernels.UnknownSolver,
		kernels.ArgValueBuffer, kernels.ArgBoundaryRowCount, kernels.ArgTotalColCount); err != nil {
		return err
	}
	if st.resultCopier, err = bind(prog, kernels.ResultCopier,
		kernels.ArgOutputBuffer, kernels.ArgCoeffBuffer, kernels.ArgBoundaryRowCount,
		kernels.ArgTotalColCount, kernels.ArgCenter, kernels.ArgCoeffCountDiff); err != nil {
		return err
	}
	if st.cleaner, err = bind(prog, kernels.BufferCleaner, kernels.ArgBuffer); err != nil {
		return err
	}

	return errors.Join(
		st.splitter.int(kernels.ArgTotalColCount, width),
		st.scaleCalc.buffer(kernels.ArgScaleBuffer, st.scale),
		st.scaleCalc.int(kernels.ArgTotalColCount, width),
		st.scaler.buffer(kernels.ArgScaleBuffer, st.scale),
		st.scaler.int(kernels.ArgTotalColCount, width),
		st.eliminator.int(kernels.ArgTotalColCount, width),
		st.unknownSolver.int(kernels.ArgTotalColCount, width),
		st.resultCopier.buffer(kernels.ArgOutputBuffer, st.output),
		st.resultCopier.int(kernels.ArgTotalColCount, width),
		st.resultCopier.int(kernels.ArgCenter, st.m/2),
		st.resultCopier.int(kernels.ArgCoeffCountDiff, st.m-st.n),
	)
}

func (st *deviceStages) Split(l Layout, splitSize int) error {
	if err := errors.Join(
		st.splitter.buffer(kernels.ArgBuffer, st.pair.src),
		st.splitter.int(kernels.ArgRowCount, splitSize),
		st.splitter.int(kernels.ArgColCount, l.ColCount),
	); err != nil {
		return err
	}
	return st.queue.Dispatch(st.splitter.kernel, []int{l.BlockCount, l.RowCount, l.ColCount}, nil)
}

func (st *deviceStages) ComputeScales(l Layout) error {
	if err := errors.Join(
		st.scaleCalc.buffer(kernels.ArgSrcBuffer, st.pair.src),
		st.scaleCalc.int(kernels.ArgBoundaryRowCount, l.BoundaryRowCount),
		st.scaleCalc.int(kernels.ArgTargetValue, l.ColCount-1),
	); err != nil {
		return err
	}
	return st.queue.Dispatch(st.scaleCalc.kernel, []int{l.BlockCount, l.RowCount}, nil)
}

func (st *deviceStages) Scale(l Layout) error {
	if err := errors.Join(
		st.scaler.buffer(kernels.ArgSrcBuffer, st.pair.src),
		st.scaler.int(kernels.ArgBoundaryRowCount, l.BoundaryRowCount),
	); err != nil {
		return err
	}
	return st.queue.Dispatch(st.scaler.kernel, []int{l.BlockCount, l.RowCount, l.ColCount}, nil)
}

func (st *deviceStages) Eliminate(l Layout) error {
	if st.scrub {
		if err := st.clean(st.pair.dst); err != nil {
			return err
		}
	}
	if err := errors.Join(
		st.eliminator.buffer(kernels.ArgSrcBuffer, st.pair.src),
		st.eliminator.buffer(kernels.ArgDesBuffer, st.pair.dst),
		st.eliminator.int(kernels.ArgBoundaryRowCount, l.BoundaryRowCount),
	); err != nil {
		return err
	}
	if err := st.queue.Dispatch(st.eliminator.kernel, []int{l.BlockCount, l.RowCount, l.ColCount}, nil); err != nil {
		return err
	}
	st.pair.swap()
	return nil
}

func (st *deviceStages) clean(buf compute.Buffer) error {
	if err := st.cleaner.buffer(kernels.ArgBuffer, buf); err != nil {
		return err
	}
	return st.queue.Dispatch(st.cleaner.kernel, []int{buf.Len()}, nil)
}

// backSubstitute solves every block's last equation and gathers the n
// unknowns, then reads them back with the solve's only blocking map.
func (st *deviceStages) backSubstitute(l Layout) ([]float64, error) {
	if l.BlockCount != st.m || l.RowCount != 1 {
		return nil, fmt.Errorf("%w: back-substitution from %s", ErrLayoutInvariant, l)
	}
	if err := errors.Join(
		st.unknownSolver.buffer(kernels.ArgValueBuffer, st.pair.src),
		st.unknownSolver.int(kernels.ArgBoundaryRowCount, l.BoundaryRowCount),
	); err != nil {
		return nil, err
	}
	if err := st.queue.Dispatch(st.unknownSolver.kernel, []int{l.BlockCount}, nil); err != nil {
		return nil, fmt.Errorf("solver: unknown solver: %w", err)
	}

	if err := errors.Join(
		st.resultCopier.buffer(kernels.ArgCoeffBuffer, st.pair.src),
		st.resultCopier.int(kernels.ArgBoundaryRowCount, l.BoundaryRowCount),
	); err != nil {
		return nil, err
	}
	if err := st.queue.Dispatch(st.resultCopier.kernel, []int{st.n}, nil); err != nil {
		return nil, fmt.Errorf("solver: result copier: %w", err)
	}

	x, err := st.queue.Map(st.output, st.n*8)
	if err != nil {
		return nil, fmt.Errorf("solver: read solution: %w", err)
	}
	return x, nil
}

// release drains the queue, discarding any pending error, then frees every
// buffer the stages allocated.
func (st *deviceStages) release() error {
	_ = st.queue.Finish()
	var errs []error
	for _, buf := range st.owned {
		errs = append(errs, buf.Release())
	}
	st.owned = nil
	return errors.Join(errs...)
}
