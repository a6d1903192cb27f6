package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/san-kum/simusolve/internal/solver"
)

// KernelStats aggregates the dispatches of one kernel.
type KernelStats struct {
	Name       string
	Dispatches int
	WorkItems  int
	Elapsed    time.Duration
}

// Recorder collects round events from a solver and dispatch timings from a
// compute queue. Dispatches arrive on the queue goroutine, so all methods
// are safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	rounds  []solver.RoundEvent
	kernels map[string]*KernelStats
}

func NewRecorder() *Recorder {
	return &Recorder{kernels: make(map[string]*KernelStats)}
}

func (r *Recorder) OnRound(ev solver.RoundEvent) {
	r.mu.Lock()
	r.rounds = append(r.rounds, ev)
	r.mu.Unlock()
}

func (r *Recorder) OnDispatch(kernel string, global []int, elapsed time.Duration) {
	items := 1
	for _, g := range global {
		items *= g
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ks, ok := r.kernels[kernel]
	if !ok {
		ks = &KernelStats{Name: kernel}
		r.kernels[kernel] = ks
	}
	ks.Dispatches++
	ks.WorkItems += items
	ks.Elapsed += elapsed
}

// Rounds returns a copy of the recorded events in arrival order.
func (r *Recorder) Rounds() []solver.RoundEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]solver.RoundEvent(nil), r.rounds...)
}

// Kernels returns per-kernel statistics sorted by name.
func (r *Recorder) Kernels() []KernelStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]KernelStats, 0, len(r.kernels))
	for _, ks := range r.kernels {
		out = append(out, *ks)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ActiveRows is the number of rows scaled in each recorded round, the
// bootstrap fork excluded.
func (r *Recorder) ActiveRows() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []float64
	for _, ev := range r.rounds {
		if ev.Round == solver.BootstrapRound {
			continue
		}
		l := ev.Before
		if ev.Forked {
			l.BlockCount *= 2
		}
		out = append(out, float64(l.ActiveRows()))
	}
	return out
}

// Summary flattens the recording into named values for storage.
func (r *Recorder) Summary() map[string]float64 {
	rows := r.ActiveRows()
	kernels := r.Kernels()

	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]float64{
		"rounds": 0,
		"forks":  0,
	}
	for _, ev := range r.rounds {
		if ev.Round != solver.BootstrapRound {
			out["rounds"]++
		}
		if ev.Forked {
			out["forks"]++
		}
	}
	if len(rows) > 0 {
		var sum float64
		for _, v := range rows {
			sum += v
		}
		out["mean_active_rows"] = sum / float64(len(rows))
	}

	var dispatches, items int
	var elapsed time.Duration
	for _, ks := range kernels {
		dispatches += ks.Dispatches
		items += ks.WorkItems
		elapsed += ks.Elapsed
		out["kernel."+ks.Name+".ms"] = float64(ks.Elapsed) / float64(time.Millisecond)
	}
	out["dispatches"] = float64(dispatches)
	out["work_items"] = float64(items)
	out["device_ms"] = float64(elapsed) / float64(time.Millisecond)
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.rounds = nil
	r.kernels = make(map[string]*KernelStats)
	r.mu.Unlock()
}
