package model

// DeviceKind is a compute backend usable for model execution
type DeviceKind string

const (
	DeviceCUDA DeviceKind = "cuda"
	DeviceMPS  DeviceKind = "mps"
	DeviceCPU  DeviceKind = "cpu"
)

// Description returns a human readable name of the backend
func (x DeviceKind) Description() string {
	switch x {
	case DeviceCUDA:
		return "CUDA"
	case DeviceMPS:
		return "MPS (Apple Silicon GPU)"
	case DeviceCPU:
		return "CPU"
	default:
		return string(x)
	}
}

// DeviceStatus is the response body of the device endpoint
type DeviceStatus struct {
	Device      DeviceKind `json:"device"`
	Description string     `json:"description"`
}
