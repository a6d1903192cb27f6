package compute

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBackend indicates a lookup for a backend name nobody registered.
	ErrNoBackend = errors.New("compute: no backend registered under that name")

	// ErrBackendUnavailable indicates the backend exists but has no usable device.
	ErrBackendUnavailable = errors.New("compute: backend unavailable")

	// ErrQueueClosed is returned when enqueuing on a released queue.
	ErrQueueClosed = errors.New("compute: queue closed")

	// ErrReleased is returned when a released buffer or device is used.
	ErrReleased = errors.New("compute: object released")
)

// Status is an accelerator result code. The values follow the OpenCL
// numbering so logs read the same regardless of backend.
type Status int

const (
	StatusSuccess               Status = 0
	StatusDeviceNotAvailable    Status = -2
	StatusOutOfResources        Status = -5
	StatusBuildProgramFailure   Status = -11
	StatusMapFailure            Status = -12
	StatusExecutionFailure      Status = -14
	StatusInvalidValue          Status = -30
	StatusInvalidDevice         Status = -33
	StatusInvalidCommandQueue   Status = -36
	StatusInvalidMemObject      Status = -38
	StatusInvalidKernelName     Status = -46
	StatusInvalidArgIndex       Status = -49
	StatusInvalidArgValue       Status = -50
	StatusInvalidKernelArgs     Status = -52
	StatusInvalidWorkDimension  Status = -53
	StatusInvalidWorkGroupSize  Status = -54
	StatusInvalidBufferSize     Status = -61
	StatusInvalidGlobalWorkSize Status = -63
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusDeviceNotAvailable:
		return "DEVICE_NOT_AVAILABLE"
	case StatusOutOfResources:
		return "OUT_OF_RESOURCES"
	case StatusBuildProgramFailure:
		return "BUILD_PROGRAM_FAILURE"
	case StatusMapFailure:
		return "MAP_FAILURE"
	case StatusExecutionFailure:
		return "EXECUTION_FAILURE"
	case StatusInvalidValue:
		return "INVALID_VALUE"
	case StatusInvalidDevice:
		return "INVALID_DEVICE"
	case StatusInvalidCommandQueue:
		return "INVALID_COMMAND_QUEUE"
	case StatusInvalidMemObject:
		return "INVALID_MEM_OBJECT"
	case StatusInvalidKernelName:
		return "INVALID_KERNEL_NAME"
	case StatusInvalidArgIndex:
		return "INVALID_ARG_INDEX"
	case StatusInvalidArgValue:
		return "INVALID_ARG_VALUE"
	case StatusInvalidKernelArgs:
		return "INVALID_KERNEL_ARGS"
	case StatusInvalidWorkDimension:
		return "INVALID_WORK_DIMENSION"
	case StatusInvalidWorkGroupSize:
		return "INVALID_WORK_GROUP_SIZE"
	case StatusInvalidBufferSize:
		return "INVALID_BUFFER_SIZE"
	case StatusInvalidGlobalWorkSize:
		return "INVALID_GLOBAL_WORK_SIZE"
	default:
		return fmt.Sprintf("STATUS(%d)", int(s))
	}
}

// BackendError reports a non-success status from a backend operation.
type BackendError struct {
	Op     string // allocate, build, write, dispatch, map, ...
	Kernel string // set for kernel related failures
	Status Status
	Err    error
}

func (e *BackendError) Error() string {
	msg := "compute: " + e.Op
	if e.Kernel != "" {
		msg += " " + e.Kernel
	}
	msg += " failed: " + e.Status.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func newError(op string, status Status, format string, args ...any) *BackendError {
	return &BackendError{Op: op, Status: status, Err: fmt.Errorf(format, args...)}
}

// StatusOf extracts the status of a backend error, StatusSuccess for nil and
// StatusInvalidValue for errors not raised by a backend.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Status
	}
	return StatusInvalidValue
}
