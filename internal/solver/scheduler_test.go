package solver

import (
	"context"
	"errors"
	"math/bits"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type call struct {
	stage     string
	layout    Layout
	splitSize int
}

// recorder is a Stages that only records what it was asked to do.
type recorder struct {
	calls  []call
	failOn string
}

func (r *recorder) record(stage string, l Layout, split int) error {
	r.calls = append(r.calls, call{stage: stage, layout: l, splitSize: split})
	if stage == r.failOn {
		return errors.New("injected")
	}
	return nil
}

func (r *recorder) Split(l Layout, size int) error { return r.record("split", l, size) }
func (r *recorder) ComputeScales(l Layout) error   { return r.record("scales", l, 0) }
func (r *recorder) Scale(l Layout) error           { return r.record("scale", l, 0) }
func (r *recorder) Eliminate(l Layout) error       { return r.record("eliminate", l, 0) }

func (r *recorder) stages() []string {
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.stage
	}
	return out
}

func runAll(n int) (*Scheduler, *recorder, []RoundEvent) {
	s, err := NewScheduler(n)
	Expect(err).NotTo(HaveOccurred())
	rec := &recorder{}
	var events []RoundEvent
	Expect(s.Run(context.Background(), rec, ObserverFunc(func(ev RoundEvent) {
		events = append(events, ev)
	}))).To(Succeed())
	return s, rec, events
}

var _ = Describe("Scheduler", func() {
	It("seeds one block spanning the padded buffer", func() {
		s, err := NewScheduler(5)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.M()).To(Equal(8))
		Expect(s.Layout()).To(Equal(Layout{BlockCount: 1, RowCount: 5, ColCount: 6, BoundaryRowCount: 16}))
		Expect(s.Rounds()).To(Equal(4))
	})

	It("rejects an empty system", func() {
		_, err := NewScheduler(0)
		Expect(err).To(MatchError(ErrLayoutInvariant))
	})

	Context("when n is not a power of two", func() {
		It("forks once before round zero with the padded split size", func() {
			_, rec, events := runAll(3)
			Expect(rec.calls[0]).To(Equal(call{
				stage:     "split",
				layout:    Layout{BlockCount: 1, RowCount: 3, ColCount: 4, BoundaryRowCount: 8},
				splitSize: 4,
			}))
			Expect(events[0].Round).To(Equal(BootstrapRound))
			Expect(events[0].After).To(Equal(Layout{BlockCount: 2, RowCount: 3, ColCount: 4, BoundaryRowCount: 4}))
		})

		It("runs round zero without forking", func() {
			_, rec, events := runAll(3)
			Expect(rec.stages()).To(Equal([]string{
				"split",
				"scales", "scale", "eliminate",
				"split", "scales", "scale", "eliminate",
			}))
			Expect(events).To(HaveLen(3))
			Expect(events[1].Forked).To(BeFalse())
			Expect(events[2].Forked).To(BeTrue())
		})
	})

	Context("when n is a power of two", func() {
		It("never bootstraps", func() {
			s, err := NewScheduler(4)
			Expect(err).NotTo(HaveOccurred())
			rec := &recorder{}
			_, forked, err := s.Bootstrap(rec)
			Expect(err).NotTo(HaveOccurred())
			Expect(forked).To(BeFalse())
			Expect(rec.calls).To(BeEmpty())
		})

		It("forks in the rounds whose row count is a power of two", func() {
			_, rec, events := runAll(4)
			Expect(events).To(HaveLen(3))
			Expect([]bool{events[0].Forked, events[1].Forked, events[2].Forked}).To(Equal([]bool{true, false, true}))
			Expect(rec.calls[0].splitSize).To(Equal(4))
			Expect(rec.calls[0].layout).To(Equal(Layout{BlockCount: 1, RowCount: 4, ColCount: 5, BoundaryRowCount: 8}))
		})
	})

	It("hands Eliminate the narrowed window", func() {
		_, rec, _ := runAll(4)
		Expect(rec.calls[2].stage).To(Equal("scale"))
		Expect(rec.calls[2].layout).To(Equal(Layout{BlockCount: 2, RowCount: 4, ColCount: 5, BoundaryRowCount: 4}))
		Expect(rec.calls[3].stage).To(Equal("eliminate"))
		Expect(rec.calls[3].layout).To(Equal(Layout{BlockCount: 2, RowCount: 3, ColCount: 4, BoundaryRowCount: 4}))
	})

	It("does nothing for a single equation", func() {
		s, rec, events := runAll(1)
		Expect(rec.calls).To(BeEmpty())
		Expect(events).To(BeEmpty())
		Expect(s.Done()).To(BeTrue())
		Expect(s.Layout()).To(Equal(Layout{BlockCount: 1, RowCount: 1, ColCount: 2, BoundaryRowCount: 2}))
	})

	DescribeTable("layout invariants hold every round",
		func(n int) {
			s, rec, events := runAll(n)
			m := s.M()
			forks := 0
			prevRows := n
			for _, ev := range events {
				Expect(ev.After.BlockCount * ev.After.BoundaryRowCount).To(Equal(2 * m))
				Expect(ev.After.ColCount).To(Equal(ev.After.RowCount + 1))
				if ev.Forked {
					forks++
					Expect(ev.After.BlockCount).To(Equal(2 * ev.Before.BlockCount))
				}
				if ev.Round == BootstrapRound {
					continue
				}
				Expect(IsPow2(ev.Before.RowCount)).To(Equal(ev.Forked))
				Expect(ev.After.RowCount).To(Equal(prevRows - 1))
				prevRows = ev.After.RowCount
			}
			Expect(forks).To(Equal(bits.TrailingZeros(uint(m))))
			Expect(s.Layout()).To(Equal(Layout{BlockCount: m, RowCount: 1, ColCount: 2, BoundaryRowCount: 2}))

			splits := 0
			for _, c := range rec.calls {
				if c.stage == "split" {
					splits++
				}
			}
			Expect(splits).To(Equal(forks))
		},
		Entry("n=2", 2),
		Entry("n=3", 3),
		Entry("n=5", 5),
		Entry("n=7", 7),
		Entry("n=8", 8),
		Entry("n=9", 9),
		Entry("n=31", 31),
		Entry("n=33", 33),
		Entry("n=64", 64),
		Entry("n=100", 100),
	)

	It("refuses to step out of order", func() {
		s, err := NewScheduler(2)
		Expect(err).NotTo(HaveOccurred())
		rec := &recorder{}
		_, err = s.Step(rec)
		Expect(err).To(MatchError(ErrScheduleOrder))

		_, _, err = s.Bootstrap(rec)
		Expect(err).NotTo(HaveOccurred())
		_, err = s.Step(rec)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Done()).To(BeTrue())
		_, err = s.Step(rec)
		Expect(err).To(MatchError(ErrScheduleOrder))
	})

	It("wraps stage failures with the round", func() {
		s, err := NewScheduler(4)
		Expect(err).NotTo(HaveOccurred())
		err = s.Run(context.Background(), &recorder{failOn: "eliminate"}, nil)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("round 0: elimination"))
	})

	It("stops between rounds when the context is canceled", func() {
		s, err := NewScheduler(6)
		Expect(err).NotTo(HaveOccurred())
		ctx, cancel := context.WithCancel(context.Background())
		rec := &recorder{}
		err = s.Run(ctx, rec, ObserverFunc(func(ev RoundEvent) {
			if ev.Round == 1 {
				cancel()
			}
		}))
		Expect(err).To(MatchError(context.Canceled))
		Expect(s.Round()).To(Equal(2))
	})

	It("plans the same events a run produces", func() {
		_, _, events := runAll(11)
		plan, err := Plan(11)
		Expect(err).NotTo(HaveOccurred())
		Expect(plan).To(Equal(events))
	})
})
