package solver

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/simusolve/internal/compute"
	"github.com/san-kum/simusolve/internal/kernels"
	"github.com/san-kum/simusolve/internal/linsys"
)

func newSolver(t *testing.T, backend compute.Backend, opts ...Option) *Solver {
	t.Helper()
	sess, err := compute.OpenSession(backend, compute.SessionConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	s, err := New(sess, opts...)
	require.NoError(t, err)
	return s
}

func cpu() compute.Backend {
	return compute.NewCPUBackend(compute.Options{Workers: 4, MinChunk: 8})
}

func TestSolveFixtures(t *testing.T) {
	s := newSolver(t, cpu())
	for _, name := range linsys.ListFixtures() {
		t.Run(name, func(t *testing.T) {
			f := linsys.GetFixture(name)
			x, err := s.Solve(context.Background(), f.System())
			require.NoError(t, err)
			require.Len(t, x, len(f.Solution))
			assert.InDeltaSlice(t, f.Solution, x, 1e-8)
		})
	}
}

func TestSolveDense(t *testing.T) {
	s := newSolver(t, cpu())
	x, err := s.SolveDense(context.Background(), [][]float64{{4}}, []float64{2})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, x)

	_, err = s.SolveDense(context.Background(), nil, nil)
	assert.ErrorIs(t, err, linsys.ErrEmptySystem)
	_, err = s.SolveDense(context.Background(), [][]float64{{1, 2}}, []float64{1})
	assert.ErrorIs(t, err, linsys.ErrDimensionMismatch)
	_, err = s.Solve(context.Background(), nil)
	var cfgErr *linsys.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestSolveRandomResidual(t *testing.T) {
	s := newSolver(t, cpu())
	for _, n := range []int{2, 3, 5, 9, 16, 17, 31, 33, 50, 64} {
		sys, err := linsys.Random(n, uint64(n), true)
		require.NoError(t, err)
		x, err := s.Solve(context.Background(), sys)
		require.NoError(t, err)
		require.Len(t, x, n)

		res, err := linsys.Residual(sys, x)
		require.NoError(t, err)
		assert.Less(t, res, 1e-6, "n=%d", n)

		ref, err := linsys.ReferenceSolve(sys)
		require.NoError(t, err)
		assert.InDeltaSlice(t, ref, x, 1e-8, "n=%d", n)
	}
}

func TestSolveDeterministic(t *testing.T) {
	sys, err := linsys.Random(23, 5, true)
	require.NoError(t, err)

	first, err := newSolver(t, cpu()).Solve(context.Background(), sys)
	require.NoError(t, err)
	serial := compute.NewCPUBackend(compute.Options{Workers: 1})
	second, err := newSolver(t, serial).Solve(context.Background(), sys)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScrubDoesNotChangeResult(t *testing.T) {
	sys := linsys.GetFixture("n7").System()
	plain, err := newSolver(t, cpu()).Solve(context.Background(), sys)
	require.NoError(t, err)
	scrubbed, err := newSolver(t, cpu(), WithScrub(true)).Solve(context.Background(), sys)
	require.NoError(t, err)
	assert.Equal(t, plain, scrubbed)
}

func TestObserverSeesEveryRound(t *testing.T) {
	var events []RoundEvent
	s := newSolver(t, cpu(), WithObserver(ObserverFunc(func(ev RoundEvent) {
		events = append(events, ev)
	})))

	_, err := s.Solve(context.Background(), linsys.GetFixture("n3").System())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, BootstrapRound, events[0].Round)

	events = nil
	_, err = s.Solve(context.Background(), linsys.GetFixture("n4").System())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 0, events[0].Round)
}

func identity(n int) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		rows[i][i] = 1
	}
	return rows
}

func hasNonFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// Without pivoting, any zero in the column being eliminated divides by zero,
// even when the system itself is well conditioned.
func TestSingularSystem(t *testing.T) {
	tests := []struct {
		name   string
		coeffs [][]float64
		consts []float64
	}{
		{"rank deficient", [][]float64{{1, 1}, {1, 1}}, []float64{1, 2}},
		{"identity 2", identity(2), []float64{1, 2}},
		{"identity 3", identity(3), []float64{1, 2, 3}},
		{"identity 4", identity(4), []float64{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := newSolver(t, cpu()).SolveDense(context.Background(), tt.coeffs, tt.consts)
			require.NoError(t, err)
			require.Len(t, x, len(tt.consts))
			assert.True(t, hasNonFinite(x), "got %v", x)

			_, err = newSolver(t, cpu(), WithStrictFinite(true)).SolveDense(context.Background(), tt.coeffs, tt.consts)
			assert.ErrorIs(t, err, ErrArithmeticDegeneracy)
		})
	}
}

func TestSolveCanceled(t *testing.T) {
	s := newSolver(t, cpu())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Solve(ctx, linsys.GetFixture("n8").System())
	assert.ErrorIs(t, err, context.Canceled)

	x, err := s.Solve(context.Background(), linsys.GetFixture("n8").System())
	require.NoError(t, err)
	assert.InDeltaSlice(t, linsys.GetFixture("n8").Solution, x, 1e-8)
}

func TestSolveConcurrentCallers(t *testing.T) {
	s := newSolver(t, cpu())
	f := linsys.GetFixture("n5")

	var wg sync.WaitGroup
	results := make([][]float64, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.Solve(context.Background(), f.System())
		}()
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.InDeltaSlice(t, f.Solution, results[i], 1e-8)
	}
}

func TestOutOfMemorySurfacesBackendError(t *testing.T) {
	small := compute.NewCPUBackend(compute.Options{MemoryLimitBytes: 256})
	_, err := newSolver(t, small).Solve(context.Background(), linsys.GetFixture("n8").System())

	var be *compute.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, compute.StatusOutOfResources, be.Status)
}

// flakyBackend wraps the CPU backend and rejects dispatches of one kernel
// while failing is set.
type flakyBackend struct {
	*compute.CPUBackend
	kernel  string
	failing bool
}

func (b *flakyBackend) Open(i int) (compute.Device, error) {
	dev, err := b.CPUBackend.Open(i)
	if err != nil {
		return nil, err
	}
	return &flakyDevice{Device: dev, backend: b}, nil
}

type flakyDevice struct {
	compute.Device
	backend *flakyBackend
}

func (d *flakyDevice) NewQueue() (compute.Queue, error) {
	q, err := d.Device.NewQueue()
	if err != nil {
		return nil, err
	}
	return &flakyQueue{Queue: q, backend: d.backend}, nil
}

type flakyQueue struct {
	compute.Queue
	backend *flakyBackend
}

func (q *flakyQueue) Dispatch(k *compute.Kernel, global, local []int) error {
	if q.backend.failing && k.Name() == q.backend.kernel {
		return &compute.BackendError{Op: "dispatch", Kernel: k.Name(), Status: compute.StatusOutOfResources}
	}
	return q.Queue.Dispatch(k, global, local)
}

func TestDispatchFailureAbortsSolve(t *testing.T) {
	backend := &flakyBackend{CPUBackend: compute.NewCPUBackend(compute.Options{}), kernel: kernels.Eliminator, failing: true}
	s := newSolver(t, backend)

	_, err := s.Solve(context.Background(), linsys.GetFixture("n6").System())
	var be *compute.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, kernels.Eliminator, be.Kernel)
	assert.Contains(t, err.Error(), "round 0: elimination")

	backend.failing = false
	x, err := s.Solve(context.Background(), linsys.GetFixture("n6").System())
	require.NoError(t, err)
	assert.InDeltaSlice(t, linsys.GetFixture("n6").Solution, x, 1e-8)
}

func TestNewRequiresSession(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoSession)
}
