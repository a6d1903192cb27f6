//go:build !cuda

package compute

func init() {
	Register("cuda", func(Options) Backend { return CUDABackend{} })
}

// CUDABackend is the placeholder registered when the binary is built without
// the cuda tag. It is never available, so AutoSelect falls through to cpu.
type CUDABackend struct{}

func (CUDABackend) Name() string    { return "cuda" }
func (CUDABackend) Available() bool { return false }

func (CUDABackend) Devices() ([]DeviceInfo, error) {
	return nil, &BackendError{Op: "devices", Status: StatusDeviceNotAvailable, Err: ErrBackendUnavailable}
}

func (CUDABackend) Open(int) (Device, error) {
	return nil, &BackendError{Op: "open device", Status: StatusDeviceNotAvailable, Err: ErrBackendUnavailable}
}
