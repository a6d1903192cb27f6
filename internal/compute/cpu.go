package compute

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/cpu"
)

const defaultMinChunk = 256

// CPUBackend runs kernels on host goroutines. It exposes a single device.
type CPUBackend struct {
	opts Options
}

func NewCPUBackend(opts Options) *CPUBackend {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.MinChunk <= 0 {
		opts.MinChunk = defaultMinChunk
	}
	return &CPUBackend{opts: opts}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }

func (c *CPUBackend) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{c.info()}, nil
}

func (c *CPUBackend) Open(deviceIndex int) (Device, error) {
	if deviceIndex != 0 {
		return nil, newError("open device", StatusInvalidDevice, "cpu backend has one device, got index %d", deviceIndex)
	}
	return &cpuDevice{backend: c, info: c.info(), pool: newSlabPool()}, nil
}

func (c *CPUBackend) info() DeviceInfo {
	return DeviceInfo{
		Name:         fmt.Sprintf("host-%s-%s", runtime.GOOS, runtime.GOARCH),
		Vendor:       "go",
		Driver:       runtime.Version(),
		ComputeUnits: c.opts.Workers,
		MemoryMB:     c.opts.MemoryLimitBytes >> 20,
		Features:     cpuFeatures(),
	}
}

func cpuFeatures() []string {
	var f []string
	switch runtime.GOARCH {
	case "amd64", "386":
		if cpu.X86.HasSSE2 {
			f = append(f, "sse2")
		}
		if cpu.X86.HasAVX {
			f = append(f, "avx")
		}
		if cpu.X86.HasAVX2 {
			f = append(f, "avx2")
		}
		if cpu.X86.HasFMA {
			f = append(f, "fma")
		}
		if cpu.X86.HasAVX512F {
			f = append(f, "avx512f")
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			f = append(f, "asimd")
		}
		if cpu.ARM64.HasATOMICS {
			f = append(f, "atomics")
		}
		if cpu.ARM64.HasSVE {
			f = append(f, "sve")
		}
	}
	return f
}

type cpuDevice struct {
	backend *CPUBackend
	info    DeviceInfo
	pool    *slabPool

	mu     sync.Mutex
	live   int
	peak   int
	closed bool
}

func (d *cpuDevice) Info() DeviceInfo { return d.info }

func (d *cpuDevice) Allocate(sizeBytes int, flags MemFlags) (Buffer, error) {
	if sizeBytes <= 0 || sizeBytes%8 != 0 {
		return nil, newError("allocate", StatusInvalidBufferSize, "size %d is not a positive multiple of 8", sizeBytes)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, &BackendError{Op: "allocate", Status: StatusInvalidDevice, Err: ErrReleased}
	}
	if limit := d.backend.opts.MemoryLimitBytes; limit > 0 && d.live+sizeBytes > limit {
		return nil, newError("allocate", StatusOutOfResources, "%d bytes requested, %d of %d in use", sizeBytes, d.live, limit)
	}
	d.live += sizeBytes
	if d.live > d.peak {
		d.peak = d.live
	}
	return &cpuBuffer{dev: d, data: d.pool.Get(sizeBytes / 8), flags: flags}, nil
}

func (d *cpuDevice) release(b *cpuBuffer) {
	d.mu.Lock()
	d.live -= b.Size()
	d.mu.Unlock()
	d.pool.Put(b.data)
}

// LiveBytes reports the bytes currently allocated on the device.
func (d *cpuDevice) LiveBytes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// PeakBytes reports the allocation high-water mark.
func (d *cpuDevice) PeakBytes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.peak
}

func (d *cpuDevice) Build(lib *Library) (*Program, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, &BackendError{Op: "build", Status: StatusInvalidDevice, Err: ErrReleased}
	}
	return compile(d, lib)
}

func (d *cpuDevice) NewQueue() (Queue, error) {
	return newCPUQueue(d), nil
}

func (d *cpuDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// own checks that buf was allocated by d and is still live.
func (d *cpuDevice) own(buf Buffer, op string) (*cpuBuffer, error) {
	b, ok := buf.(*cpuBuffer)
	if !ok || b.dev != d {
		return nil, newError(op, StatusInvalidMemObject, "buffer %T does not belong to this device", buf)
	}
	if b.released.Load() {
		return nil, &BackendError{Op: op, Status: StatusInvalidMemObject, Err: ErrReleased}
	}
	return b, nil
}

// run executes fn over the global index space. Work-items are split into
// contiguous chunks, the last dimension varying fastest.
func (d *cpuDevice) run(name string, fn KernelFunc, args Args, global []int) error {
	var base WorkItem
	base.dims = len(global)
	total := 1
	for i, g := range global {
		base.size[i] = g
		total *= g
	}

	workers := d.backend.opts.Workers
	if chunks := (total + d.backend.opts.MinChunk - 1) / d.backend.opts.MinChunk; chunks < workers {
		workers = chunks
	}
	chunk := (total + workers - 1) / workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, total)
		if start >= end {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &BackendError{Op: "dispatch", Kernel: name, Status: StatusExecutionFailure,
						Err: fmt.Errorf("work-item fault: %v", r)}
				}
			}()
			item := base
			for lin := start; lin < end; lin++ {
				rem := lin
				for dim := base.dims - 1; dim >= 0; dim-- {
					item.id[dim] = rem % base.size[dim]
					rem /= base.size[dim]
				}
				fn(item, args)
			}
			return nil
		})
	}
	return g.Wait()
}

type cpuBuffer struct {
	dev      *cpuDevice
	data     []float64
	flags    MemFlags
	released atomic.Bool
}

func (b *cpuBuffer) Size() int       { return len(b.data) * 8 }
func (b *cpuBuffer) Len() int        { return len(b.data) }
func (b *cpuBuffer) Flags() MemFlags { return b.flags }

func (b *cpuBuffer) Release() error {
	if b.released.Swap(true) {
		return &BackendError{Op: "release", Status: StatusInvalidMemObject, Err: ErrReleased}
	}
	b.dev.release(b)
	return nil
}
