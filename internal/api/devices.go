package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/audit"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/device"
)

// handleListDevices returns every discovered node in discovery order.
// An optional ?status= filter narrows the list.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var devices []device.Device
	if status := r.URL.Query().Get("status"); status != "" {
		devices = s.registry.ListByStatus(device.Status(status))
	} else {
		devices = s.registry.List()
	}
	if devices == nil {
		devices = []device.Device{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns a single node by address.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, ok := s.registry.Get(id)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleConnectDevice starts a connection to a node. The outcome arrives
// later as a device.status event, so the response is 202 with the status at
// the time of the request.
func (s *Server) handleConnectDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.readiness == nil {
		writeUnavailable(w, "device connections are unavailable")
		return
	}

	if err := s.readiness.Connect(id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("connect request failed", "device_id", id, "error", err)
		s.record(r.Context(), audit.ActionDeviceConnect, id, "failed", map[string]any{"error": err.Error()})
		writeInternalError(w, "failed to start connection")
		return
	}
	s.record(r.Context(), audit.ActionDeviceConnect, id, "requested", nil)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"device_id": id,
		"status":    s.registry.Status(id),
	})
}
