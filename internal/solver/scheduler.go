package solver

import (
	"context"
	"fmt"
)

// BootstrapRound is the Round of the forced fork that precedes round 0 when
// n is not a power of two.
const BootstrapRound = -1

// Layout is the host-side shape of the working matrix. Block b occupies rows
// [b·BoundaryRowCount, (b+1)·BoundaryRowCount) and its active window is the
// top-left RowCount×ColCount corner of that range.
type Layout struct {
	BlockCount       int `json:"block_count"`
	RowCount         int `json:"row_count"`
	ColCount         int `json:"col_count"`
	BoundaryRowCount int `json:"boundary_row_count"`
}

// ActiveRows is the number of rows processed this round across all blocks.
func (l Layout) ActiveRows() int { return l.BlockCount * l.RowCount }

func (l Layout) String() string {
	return fmt.Sprintf("blocks=%d rows=%d cols=%d boundary=%d", l.BlockCount, l.RowCount, l.ColCount, l.BoundaryRowCount)
}

type RoundEvent struct {
	Round  int    `json:"round"`
	Forked bool   `json:"forked"`
	Before Layout `json:"before"`
	After  Layout `json:"after"`
}

type Observer interface {
	OnRound(ev RoundEvent)
}

type ObserverFunc func(ev RoundEvent)

func (f ObserverFunc) OnRound(ev RoundEvent) { f(ev) }

// Stages performs the device work of a round. Scheduler calls them in order
// with the layout each dispatch covers.
type Stages interface {
	// Split forks every block of l. The dispatch covers l's blocks, rows and
	// columns; splitSize is the row offset of each duplicate.
	Split(l Layout, splitSize int) error
	ComputeScales(l Layout) error
	Scale(l Layout) error
	// Eliminate receives the already narrowed layout.
	Eliminate(l Layout) error
}

// Scheduler drives the round state machine for one solve of size n.
type Scheduler struct {
	n, m         int
	layout       Layout
	round        int
	bootstrapped bool
}

func NewScheduler(n int) (*Scheduler, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: size %d", ErrLayoutInvariant, n)
	}
	m := NextPow2(n)
	return &Scheduler{
		n: n,
		m: m,
		layout: Layout{
			BlockCount:       1,
			RowCount:         n,
			ColCount:         n + 1,
			BoundaryRowCount: 2 * m,
		},
	}, nil
}

func (s *Scheduler) N() int         { return s.n }
func (s *Scheduler) M() int         { return s.m }
func (s *Scheduler) Layout() Layout { return s.layout }

// Round is the index of the next round to run.
func (s *Scheduler) Round() int { return s.round }

// Rounds is the total number of elimination rounds.
func (s *Scheduler) Rounds() int { return s.n - 1 }

func (s *Scheduler) Done() bool { return s.bootstrapped && s.round == s.n-1 }

// Bootstrap forks the seed block once when n is not a power of two, so the
// padded size m is what later forks halve. It reports whether it forked and
// is a no-op on the second call.
func (s *Scheduler) Bootstrap(st Stages) (RoundEvent, bool, error) {
	if s.bootstrapped {
		return RoundEvent{}, false, nil
	}
	s.bootstrapped = true
	if IsPow2(s.n) {
		return RoundEvent{}, false, nil
	}

	before := s.layout
	if err := st.Split(before, s.m); err != nil {
		return RoundEvent{}, false, fmt.Errorf("solver: bootstrap split: %w", err)
	}
	s.layout.BlockCount *= 2
	s.layout.BoundaryRowCount /= 2
	if err := s.check(); err != nil {
		return RoundEvent{}, false, err
	}
	return RoundEvent{Round: BootstrapRound, Forked: true, Before: before, After: s.layout}, true, nil
}

// Step runs one elimination round.
func (s *Scheduler) Step(st Stages) (RoundEvent, error) {
	if !s.bootstrapped || s.Done() {
		return RoundEvent{}, fmt.Errorf("%w: round %d of %d", ErrScheduleOrder, s.round, s.n-1)
	}

	before := s.layout
	l := before
	forked := false
	if IsPow2(l.RowCount) {
		if err := st.Split(l, l.RowCount); err != nil {
			return RoundEvent{}, s.stageErr("split", err)
		}
		l.BlockCount *= 2
		l.BoundaryRowCount /= 2
		forked = true
	}
	if err := st.ComputeScales(l); err != nil {
		return RoundEvent{}, s.stageErr("scale calculation", err)
	}
	if err := st.Scale(l); err != nil {
		return RoundEvent{}, s.stageErr("scale", err)
	}

	l.RowCount--
	l.ColCount--
	if err := st.Eliminate(l); err != nil {
		return RoundEvent{}, s.stageErr("elimination", err)
	}

	s.layout = l
	ev := RoundEvent{Round: s.round, Forked: forked, Before: before, After: l}
	s.round++
	if err := s.check(); err != nil {
		return RoundEvent{}, err
	}
	return ev, nil
}

func (s *Scheduler) stageErr(stage string, err error) error {
	return fmt.Errorf("solver: round %d: %s: %w", s.round, stage, err)
}

// Run bootstraps and steps until done, reporting each event to obs. The
// context is checked before every round; a round already enqueued runs to
// completion.
func (s *Scheduler) Run(ctx context.Context, st Stages, obs Observer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev, forked, err := s.Bootstrap(st)
	if err != nil {
		return err
	}
	if forked && obs != nil {
		obs.OnRound(ev)
	}
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("solver: canceled before round %d: %w", s.round, err)
		}
		ev, err := s.Step(st)
		if err != nil {
			return err
		}
		if obs != nil {
			obs.OnRound(ev)
		}
	}
	return nil
}

func (s *Scheduler) check() error {
	l := s.layout
	switch {
	case l.BlockCount*l.BoundaryRowCount != 2*s.m:
		return fmt.Errorf("%w: %d blocks of %d rows != %d", ErrLayoutInvariant, l.BlockCount, l.BoundaryRowCount, 2*s.m)
	case l.ColCount != l.RowCount+1:
		return fmt.Errorf("%w: %d cols for %d rows", ErrLayoutInvariant, l.ColCount, l.RowCount)
	case l.RowCount < 1 || l.RowCount > l.BoundaryRowCount:
		return fmt.Errorf("%w: %d rows in a %d row block", ErrLayoutInvariant, l.RowCount, l.BoundaryRowCount)
	case l.BlockCount > s.m:
		return fmt.Errorf("%w: %d blocks exceed %d", ErrLayoutInvariant, l.BlockCount, s.m)
	}
	return nil
}

type planStages struct{}

func (planStages) Split(Layout, int) error    { return nil }
func (planStages) ComputeScales(Layout) error { return nil }
func (planStages) Scale(Layout) error         { return nil }
func (planStages) Eliminate(Layout) error     { return nil }

// Plan returns the events a solve of size n goes through without touching a
// device.
func Plan(n int) ([]RoundEvent, error) {
	s, err := NewScheduler(n)
	if err != nil {
		return nil, err
	}
	var events []RoundEvent
	err = s.Run(context.Background(), planStages{}, ObserverFunc(func(ev RoundEvent) {
		events = append(events, ev)
	}))
	return events, err
}
