package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/simusolve/internal/compute"
	"github.com/san-kum/simusolve/internal/kernels"
	"github.com/san-kum/simusolve/internal/linsys"
)

type Option func(*Solver)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Solver) { s.log = l }
}

// WithObserver receives every round event, including the bootstrap fork.
func WithObserver(o Observer) Option {
	return func(s *Solver) { s.observer = o }
}

// WithScrub zeroes the destination buffer before every elimination.
func WithScrub(on bool) Option {
	return func(s *Solver) { s.scrub = on }
}

// WithStrictFinite makes Solve fail with ErrArithmeticDegeneracy instead of
// returning NaN or Inf unknowns.
func WithStrictFinite(on bool) Option {
	return func(s *Solver) { s.strict = on }
}

// Solver runs block-fork elimination on one compute session. Solves on the
// same Solver are serialized; each owns its buffers for its duration.
type Solver struct {
	sess     *compute.Session
	program  *compute.Program
	log      zerolog.Logger
	observer Observer
	scrub    bool
	strict   bool

	mu sync.Mutex
}

// New builds the kernel library on the session's device.
func New(sess *compute.Session, opts ...Option) (*Solver, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	s := &Solver{sess: sess, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	prog, err := sess.Device().Build(kernels.Library())
	if err != nil {
		return nil, fmt.Errorf("solver: build kernels: %w", err)
	}
	s.program = prog
	return s, nil
}

// SolveDense is Solve on a system built from raw coefficients and constants.
func (s *Solver) SolveDense(ctx context.Context, coefficients [][]float64, constants []float64) ([]float64, error) {
	sys, err := linsys.New(coefficients, constants)
	if err != nil {
		return nil, err
	}
	return s.Solve(ctx, sys)
}

// Solve returns the n unknowns of sys. Pivots are not guarded: a singular or
// badly conditioned system yields NaN or Inf entries unless strict finite
// checking is on.
func (s *Solver) Solve(ctx context.Context, sys *linsys.System) (x []float64, err error) {
	packed, err := Pack(sys)
	if err != nil {
		return nil, err
	}
	n := sys.N()
	sched, err := NewScheduler(n)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	log := s.log.With().Int("n", n).Int("m", sched.M()).Logger()
	log.Debug().Int("rounds", sched.Rounds()).Bool("scrub", s.scrub).Msg("solve started")

	st, err := newDeviceStages(s.sess, s.program, packed, n, s.scrub)
	if err != nil {
		return nil, fmt.Errorf("solver: prepare buffers: %w", err)
	}
	defer func() {
		if rerr := st.release(); rerr != nil {
			log.Warn().Err(rerr).Msg("release buffers")
			if err == nil {
				err = rerr
			}
		}
	}()

	obs := ObserverFunc(func(ev RoundEvent) {
		log.Debug().
			Int("round", ev.Round).
			Bool("forked", ev.Forked).
			Int("blocks", ev.After.BlockCount).
			Int("rows", ev.After.RowCount).
			Int("boundary", ev.After.BoundaryRowCount).
			Msg("round enqueued")
		if s.observer != nil {
			s.observer.OnRound(ev)
		}
	})
	if err := sched.Run(ctx, st, obs); err != nil {
		return nil, err
	}

	x, err = st.backSubstitute(sched.Layout())
	if err != nil {
		return nil, err
	}
	log.Debug().Dur("elapsed", time.Since(start)).Msg("solve finished")

	if s.strict {
		if err := checkFinite(x); err != nil {
			return nil, err
		}
	}
	return x, nil
}

func checkFinite(x []float64) error {
	var errs []error
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%w: unknown %d is %v", ErrArithmeticDegeneracy, i, v))
		}
	}
	return errors.Join(errs...)
}
