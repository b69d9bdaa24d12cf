package http

import (
	"net/http"

	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/model"
)

type deviceHandler struct {
	deviceUC interfaces.DeviceUseCase
}

func newDeviceHandler(deviceUC interfaces.DeviceUseCase) *deviceHandler {
	return &deviceHandler{deviceUC: deviceUC}
}

// Handle reports the compute backend selected on this host
func (h *deviceHandler) Handle(w http.ResponseWriter, r *http.Request) {
	device := h.deviceUC.Select(r.Context())

	writeJSON(r.Context(), w, &model.DeviceStatus{
		Device:      device,
		Description: device.Description(),
	}, http.StatusOK)
}
