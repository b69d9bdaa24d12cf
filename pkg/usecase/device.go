package usecase

import (
	"context"

	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
)

type deviceSelector struct {
	prober interfaces.DeviceProber
}

// NewDeviceSelector creates a DeviceUseCase backed by prober
func NewDeviceSelector(prober interfaces.DeviceProber) interfaces.DeviceUseCase {
	return &deviceSelector{
		prober: prober,
	}
}

// Select returns the preferred backend: CUDA, then Apple GPU, then CPU
func (uc *deviceSelector) Select(ctx context.Context) model.DeviceKind {
	device := model.DeviceCPU
	switch {
	case uc.prober.CUDAAvailable(ctx):
		device = model.DeviceCUDA
	case uc.prober.AppleGPUAvailable(ctx):
		device = model.DeviceMPS
	}

	ctxlog.From(ctx).Info("Using device",
		"device", device,
		"description", device.Description(),
	)
	return device
}
