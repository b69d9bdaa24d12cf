package interfaces

import "context"

// DeviceProber checks compute backends available on the host
type DeviceProber interface {
	CUDAAvailable(ctx context.Context) bool
	AppleGPUAvailable(ctx context.Context) bool
}
