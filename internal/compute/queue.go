package compute

import (
	"errors"
	"sync"
	"time"
)

const queueDepth = 64

type command struct {
	op  string
	run func() error
}

// cpuQueue executes commands on one goroutine in submission order. The first
// failing command poisons the queue: later commands are skipped until the
// error is collected by Finish or Map.
type cpuQueue struct {
	dev   *cpuDevice
	tasks chan command
	done  chan struct{}

	// mu guards closed and the channel send against Release.
	mu     sync.RWMutex
	closed bool

	stateMu  sync.Mutex
	idle     *sync.Cond
	pending  int
	err      error
	observer DispatchObserver
}

func newCPUQueue(d *cpuDevice) *cpuQueue {
	q := &cpuQueue{
		dev:   d,
		tasks: make(chan command, queueDepth),
		done:  make(chan struct{}),
	}
	q.idle = sync.NewCond(&q.stateMu)
	go q.loop()
	return q
}

func (q *cpuQueue) loop() {
	defer close(q.done)
	for cmd := range q.tasks {
		q.stateMu.Lock()
		failed := q.err != nil
		q.stateMu.Unlock()

		var err error
		if !failed {
			err = cmd.run()
		}

		q.stateMu.Lock()
		if err != nil && q.err == nil {
			q.err = err
		}
		q.pending--
		if q.pending == 0 {
			q.idle.Broadcast()
		}
		q.stateMu.Unlock()
	}
}

func (q *cpuQueue) enqueue(cmd command) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return &BackendError{Op: cmd.op, Status: StatusInvalidCommandQueue, Err: ErrQueueClosed}
	}
	q.stateMu.Lock()
	q.pending++
	q.stateMu.Unlock()
	q.tasks <- cmd
	return nil
}

// SetObserver installs o; it is called from the queue goroutine.
func (q *cpuQueue) SetObserver(o DispatchObserver) {
	q.stateMu.Lock()
	q.observer = o
	q.stateMu.Unlock()
}

func (q *cpuQueue) currentObserver() DispatchObserver {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()
	return q.observer
}

func (q *cpuQueue) Write(buf Buffer, data []float64) error {
	b, err := q.dev.own(buf, "write")
	if err != nil {
		return err
	}
	if len(data) > b.Len() {
		return newError("write", StatusInvalidValue, "%d values exceed buffer of %d", len(data), b.Len())
	}
	staged := append([]float64(nil), data...)
	return q.enqueue(command{op: "write", run: func() error {
		if b.released.Load() {
			return &BackendError{Op: "write", Status: StatusInvalidMemObject, Err: ErrReleased}
		}
		copy(b.data, staged)
		return nil
	}})
}

func (q *cpuQueue) Dispatch(k *Kernel, global, local []int) error {
	if k == nil {
		return newError("dispatch", StatusInvalidValue, "nil kernel")
	}
	if k.program.device != Device(q.dev) {
		return &BackendError{Op: "dispatch", Kernel: k.Name(), Status: StatusInvalidDevice,
			Err: errors.New("kernel built for another device")}
	}
	if len(global) == 0 || len(global) > MaxDims {
		return &BackendError{Op: "dispatch", Kernel: k.Name(), Status: StatusInvalidWorkDimension}
	}
	for _, g := range global {
		if g <= 0 {
			return &BackendError{Op: "dispatch", Kernel: k.Name(), Status: StatusInvalidGlobalWorkSize}
		}
	}
	if local != nil {
		if len(local) != len(global) {
			return &BackendError{Op: "dispatch", Kernel: k.Name(), Status: StatusInvalidWorkDimension}
		}
		for i, l := range local {
			if l <= 0 || global[i]%l != 0 {
				return &BackendError{Op: "dispatch", Kernel: k.Name(), Status: StatusInvalidWorkGroupSize}
			}
		}
	}

	vals, err := k.snapshot()
	if err != nil {
		return err
	}
	params := k.info.spec.Params
	args := Args{bufs: make([][]float64, len(vals)), ints: make([]int, len(vals))}
	var bound []*cpuBuffer
	for i, v := range vals {
		if params[i].Kind == ParamInt {
			args.ints[i] = v.i
			continue
		}
		b, err := q.dev.own(v.buf, "dispatch")
		if err != nil {
			return err
		}
		args.bufs[i] = b.data
		bound = append(bound, b)
	}

	name, fn := k.Name(), k.info.spec.Func
	dims := append([]int(nil), global...)
	return q.enqueue(command{op: "dispatch", run: func() error {
		for _, b := range bound {
			if b.released.Load() {
				return &BackendError{Op: "dispatch", Kernel: name, Status: StatusInvalidMemObject, Err: ErrReleased}
			}
		}
		start := time.Now()
		if err := q.dev.run(name, fn, args, dims); err != nil {
			return err
		}
		if o := q.currentObserver(); o != nil {
			o.OnDispatch(name, dims, time.Since(start))
		}
		return nil
	}})
}

func (q *cpuQueue) Map(buf Buffer, sizeBytes int) ([]float64, error) {
	b, err := q.dev.own(buf, "map")
	if err != nil {
		return nil, err
	}
	if sizeBytes <= 0 || sizeBytes%8 != 0 || sizeBytes > b.Size() {
		return nil, newError("map", StatusInvalidValue, "size %d invalid for buffer of %d bytes", sizeBytes, b.Size())
	}
	if b.flags&MemHostNoAccess != 0 {
		return nil, newError("map", StatusMapFailure, "buffer is not host accessible")
	}

	out := make([]float64, sizeBytes/8)
	err = q.enqueue(command{op: "map", run: func() error {
		copy(out, b.data)
		return nil
	}})
	if err != nil {
		return nil, err
	}
	if err := q.Finish(); err != nil {
		return nil, err
	}
	return out, nil
}

func (q *cpuQueue) Finish() error {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()
	for q.pending > 0 {
		q.idle.Wait()
	}
	err := q.err
	q.err = nil
	return err
}

// Release waits for queued commands to drain and stops the queue goroutine.
func (q *cpuQueue) Release() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()
	<-q.done
	return nil
}
