package compute

import "sync"

// slabPool recycles device slabs by length. Slabs handed out are always
// zeroed, which gives Allocate its zero-initialized guarantee.
type slabPool struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool
}

func newSlabPool() *slabPool {
	return &slabPool{pools: make(map[int]*sync.Pool)}
}

func (p *slabPool) pool(n int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sp, ok := p.pools[n]
	if !ok {
		sp = &sync.Pool{
			New: func() interface{} {
				return make([]float64, n)
			},
		}
		p.pools[n] = sp
	}
	return sp
}

func (p *slabPool) Get(n int) []float64 {
	return p.pool(n).Get().([]float64)
}

func (p *slabPool) Put(s []float64) {
	if len(s) == 0 {
		return
	}
	clear(s)
	p.pool(len(s)).Put(s)
}
