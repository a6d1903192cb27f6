package compute

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemFlags describes how a buffer is accessed by kernels and by the host.
type MemFlags uint8

const (
	MemReadWrite MemFlags = 1 << iota
	MemReadOnly
	MemWriteOnly
	MemHostReadOnly
	MemHostNoAccess
)

// DeviceInfo describes one device of a backend.
type DeviceInfo struct {
	Name         string
	Vendor       string
	Driver       string
	ComputeUnits int
	MemoryMB     int
	Features     []string
}

// Backend is implemented by accelerator runtimes. It is responsible for
// device discovery and for opening devices.
type Backend interface {
	Name() string
	Available() bool
	Devices() ([]DeviceInfo, error)
	Open(deviceIndex int) (Device, error)
}

// Device owns memory and builds programs for one accelerator.
type Device interface {
	Info() DeviceInfo
	// Allocate reserves a zero-initialized buffer of sizeBytes bytes.
	// sizeBytes must be a positive multiple of 8 (one float64 per slot).
	Allocate(sizeBytes int, flags MemFlags) (Buffer, error)
	// Build validates a kernel library and prepares it for dispatch.
	Build(lib *Library) (*Program, error)
	// NewQueue creates an in-order command queue.
	NewQueue() (Queue, error)
	Close() error
}

// Buffer is device memory holding float64 values.
type Buffer interface {
	Size() int
	Len() int
	Flags() MemFlags
	Release() error
}

// Queue is an in-order command queue. Write and Dispatch return once the
// command is enqueued; Map and Finish block until all prior commands ran.
type Queue interface {
	Write(buf Buffer, data []float64) error
	Dispatch(k *Kernel, global, local []int) error
	Map(buf Buffer, sizeBytes int) ([]float64, error)
	Finish() error
	Release() error
}

// DispatchObserver is notified after each kernel dispatch has executed.
type DispatchObserver interface {
	OnDispatch(kernel string, global []int, elapsed time.Duration)
}

// Options tune a backend when it is constructed from the registry.
type Options struct {
	// Workers bounds the goroutines used per dispatch; 0 means GOMAXPROCS.
	Workers int
	// MinChunk is the smallest number of work-items handed to one worker.
	MinChunk int
	// MemoryLimitBytes caps live allocations per device; 0 means unlimited.
	MemoryLimitBytes int
}

// Factory builds a backend from options.
type Factory func(opts Options) Backend

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
	priority   []string
)

func init() {
	Register("cpu", func(opts Options) Backend { return NewCPUBackend(opts) })
}

// Register adds a backend factory. Later registrations take priority in
// AutoSelect; registering an existing name replaces it.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; !ok {
		priority = append([]string{name}, priority...)
	}
	registry[name] = f
}

// Lookup constructs the backend registered under name.
func Lookup(name string, opts Options) (Backend, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoBackend, name)
	}
	b := f(opts)
	if !b.Available() {
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, name)
	}
	return b, nil
}

// Names lists the registered backends in alphabetical order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AutoSelect returns the most recently registered available backend. The
// cpu backend is always available, so this only fails if it was replaced.
func AutoSelect(opts Options) (Backend, error) {
	registryMu.RLock()
	order := append([]string(nil), priority...)
	registryMu.RUnlock()
	for _, name := range order {
		if b, err := Lookup(name, opts); err == nil {
			return b, nil
		}
	}
	return nil, ErrBackendUnavailable
}
