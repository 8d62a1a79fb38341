package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/sinric-link/internal/device"
)

// DeviceResponse describes one registered device.
type DeviceResponse struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// named is implemented by devices built on device.Base.
type named interface {
	Name() string
}

func deviceResponse(d device.Device) DeviceResponse {
	resp := DeviceResponse{ID: d.ID(), Type: string(d.Type())}
	if n, ok := d.(named); ok {
		resp.Name = n.Name()
	}
	return resp
}

// handleListDevices returns the registered devices in registration order.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devs := s.session.Devices()
	out := make([]DeviceResponse, 0, len(devs))
	for _, d := range devs {
		out = append(out, deviceResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": out,
		"count":   len(out),
	})
}

// handleGetDevice returns a single device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := device.ValidateID(id); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	d, ok := s.session.FindDevice(id)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, deviceResponse(d))
}
