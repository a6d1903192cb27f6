package compute

import (
	"errors"
	"fmt"
)

// ParamKind is the type of a declared kernel parameter.
type ParamKind uint8

const (
	ParamBuffer ParamKind = iota + 1
	ParamInt
)

func (k ParamKind) String() string {
	switch k {
	case ParamBuffer:
		return "buffer"
	case ParamInt:
		return "int"
	default:
		return "invalid"
	}
}

// Param is one declared kernel parameter.
type Param struct {
	Name string
	Kind ParamKind
}

// MaxDims is the largest supported index space dimensionality.
const MaxDims = 3

// WorkItem identifies one invocation within a dispatch.
type WorkItem struct {
	id   [MaxDims]int
	size [MaxDims]int
	dims int
}

// ID is the global id along dim (get_global_id).
func (w WorkItem) ID(dim int) int { return w.id[dim] }

// Size is the global size along dim (get_global_size).
func (w WorkItem) Size(dim int) int { return w.size[dim] }

// Dims is the number of dimensions of the dispatch.
func (w WorkItem) Dims() int { return w.dims }

// Args is the positional argument view a kernel body reads.
type Args struct {
	bufs [][]float64
	ints []int
}

// Buffer returns the backing values of the buffer bound at index i.
func (a Args) Buffer(i int) []float64 { return a.bufs[i] }

// Int returns the integer bound at index i.
func (a Args) Int(i int) int { return a.ints[i] }

// KernelFunc is a kernel body executed once per work-item by host devices.
type KernelFunc func(item WorkItem, args Args)

// KernelSpec declares a kernel: its entry name, ordered parameters and body.
type KernelSpec struct {
	Name   string
	Params []Param
	Func   KernelFunc
}

// Library is a named collection of kernels, the unit a device builds.
type Library struct {
	Name    string
	Kernels []KernelSpec
}

type kernelInfo struct {
	spec  KernelSpec
	index map[string]int
}

// Program is a built library. Each call to Kernel creates an independent
// instance with its own argument slots.
type Program struct {
	name    string
	device  Device
	kernels map[string]*kernelInfo
}

// compile validates lib and resolves every kernel's name→index table.
func compile(dev Device, lib *Library) (*Program, error) {
	if lib == nil || len(lib.Kernels) == 0 {
		return nil, newError("build", StatusInvalidValue, "empty library")
	}
	p := &Program{name: lib.Name, device: dev, kernels: make(map[string]*kernelInfo, len(lib.Kernels))}
	for _, spec := range lib.Kernels {
		if spec.Name == "" {
			return nil, newError("build", StatusBuildProgramFailure, "%s: kernel without a name", lib.Name)
		}
		if _, dup := p.kernels[spec.Name]; dup {
			return nil, newError("build", StatusBuildProgramFailure, "%s: duplicate kernel %q", lib.Name, spec.Name)
		}
		if spec.Func == nil {
			return nil, newError("build", StatusBuildProgramFailure, "%s: kernel %q has no body", lib.Name, spec.Name)
		}
		info := &kernelInfo{spec: spec, index: make(map[string]int, len(spec.Params))}
		for i, param := range spec.Params {
			if param.Name == "" {
				return nil, newError("build", StatusBuildProgramFailure, "%s: parameter %d unnamed", spec.Name, i)
			}
			if param.Kind != ParamBuffer && param.Kind != ParamInt {
				return nil, newError("build", StatusBuildProgramFailure, "%s: parameter %q has invalid kind", spec.Name, param.Name)
			}
			if _, dup := info.index[param.Name]; dup {
				return nil, newError("build", StatusBuildProgramFailure, "%s: duplicate parameter %q", spec.Name, param.Name)
			}
			info.index[param.Name] = i
		}
		p.kernels[spec.Name] = info
	}
	return p, nil
}

// Name returns the library name the program was built from.
func (p *Program) Name() string { return p.name }

// Kernel creates a new instance of the named kernel.
func (p *Program) Kernel(name string) (*Kernel, error) {
	info, ok := p.kernels[name]
	if !ok {
		return nil, &BackendError{Op: "create kernel", Kernel: name, Status: StatusInvalidKernelName}
	}
	return &Kernel{
		info:    info,
		program: p,
		args:    make([]argValue, len(info.spec.Params)),
	}, nil
}

type argValue struct {
	set bool
	buf Buffer
	i   int
}

// Kernel is one kernel instance with bound arguments.
type Kernel struct {
	info    *kernelInfo
	program *Program
	args    []argValue
}

// Name returns the kernel entry name.
func (k *Kernel) Name() string { return k.info.spec.Name }

// Params returns the declared parameters in positional order.
func (k *Kernel) Params() []Param {
	return append([]Param(nil), k.info.spec.Params...)
}

// ArgIndex resolves a declared parameter name to its position.
func (k *Kernel) ArgIndex(name string) (int, error) {
	i, ok := k.info.index[name]
	if !ok {
		return -1, &BackendError{Op: "resolve argument", Kernel: k.Name(), Status: StatusInvalidArgIndex,
			Err: fmt.Errorf("no parameter %q", name)}
	}
	return i, nil
}

// ArgIndices resolves several parameter names at once, in the given order.
func (k *Kernel) ArgIndices(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		j, err := k.ArgIndex(name)
		if err != nil {
			return nil, err
		}
		idx[i] = j
	}
	return idx, nil
}

func (k *Kernel) param(index int, kind ParamKind) error {
	if index < 0 || index >= len(k.args) {
		return &BackendError{Op: "set argument", Kernel: k.Name(), Status: StatusInvalidArgIndex,
			Err: fmt.Errorf("index %d out of range", index)}
	}
	if got := k.info.spec.Params[index].Kind; got != kind {
		return &BackendError{Op: "set argument", Kernel: k.Name(), Status: StatusInvalidArgValue,
			Err: fmt.Errorf("parameter %q is %s, got %s", k.info.spec.Params[index].Name, got, kind)}
	}
	return nil
}

// SetBuffer binds a buffer at a positional index.
func (k *Kernel) SetBuffer(index int, b Buffer) error {
	if err := k.param(index, ParamBuffer); err != nil {
		return err
	}
	if b == nil {
		return &BackendError{Op: "set argument", Kernel: k.Name(), Status: StatusInvalidMemObject,
			Err: errors.New("nil buffer")}
	}
	k.args[index] = argValue{set: true, buf: b}
	return nil
}

// SetInt binds an integer at a positional index.
func (k *Kernel) SetInt(index int, v int) error {
	if err := k.param(index, ParamInt); err != nil {
		return err
	}
	k.args[index] = argValue{set: true, i: v}
	return nil
}

// SetArg binds a value by parameter name. v must be a Buffer or an int.
func (k *Kernel) SetArg(name string, v any) error {
	i, err := k.ArgIndex(name)
	if err != nil {
		return err
	}
	switch val := v.(type) {
	case Buffer:
		return k.SetBuffer(i, val)
	case int:
		return k.SetInt(i, val)
	default:
		return &BackendError{Op: "set argument", Kernel: k.Name(), Status: StatusInvalidArgValue,
			Err: fmt.Errorf("unsupported value type %T for %q", v, name)}
	}
}

// snapshot copies the current bindings; every parameter must be bound.
func (k *Kernel) snapshot() ([]argValue, error) {
	for i, a := range k.args {
		if !a.set {
			return nil, &BackendError{Op: "dispatch", Kernel: k.Name(), Status: StatusInvalidKernelArgs,
				Err: fmt.Errorf("parameter %q not bound", k.info.spec.Params[i].Name)}
		}
	}
	return append([]argValue(nil), k.args...), nil
}
