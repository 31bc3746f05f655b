package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eyamastour/backend-BrightMind/internal/device"
)

// deviceRequest is the request body for creating and updating devices.
type deviceRequest struct {
	Name           *string  `json:"name"`
	Zone           *string  `json:"zone"`
	Type           *string  `json:"type"`
	DeviceType     *string  `json:"device_type"`
	Status         *string  `json:"status"`
	Value          *float64 `json:"value"`
	Connected      *bool    `json:"connected"`
	PortServer     *string  `json:"port_server"`
	RoomID         *string  `json:"room_id"`
	InstallationID *string  `json:"installation_id"`
}

// deviceInstallationContext resolves the installation a device belongs to
// for authorization: the room's installation wins when a room is set, the
// direct attachment is the fallback, then "" for an unplaced device (admin
// only). Room-first keeps access correct when a room moves installations
// and the device's stored installation id is stale.
func (s *Server) deviceInstallationContext(ctx context.Context, dev *device.Device) string {
	if dev.RoomID != nil && *dev.RoomID != "" {
		room, err := s.rooms.GetByID(ctx, *dev.RoomID)
		if err == nil {
			return room.InstallationID
		}
	}
	if dev.InstallationID != nil && *dev.InstallationID != "" {
		return *dev.InstallationID
	}
	return ""
}

// handleListDevices returns the devices visible to the caller.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	var (
		devices []device.Device
		err     error
	)
	if scope.IsAdmin() {
		devices, err = s.devices.List(r.Context())
	} else {
		devices, err = s.devices.ListByInstallations(r.Context(), scope.AccessibleInstallationIDs())
	}
	if err != nil {
		s.logger.Error("listing devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleCreateDevice registers a device. Placement is optional, but when
// given the caller needs access to the target installation or room.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	dev := &device.Device{}
	if req.Name != nil {
		dev.Name = *req.Name
	}
	if req.Zone != nil {
		dev.Zone = *req.Zone
	}
	if req.Type != nil {
		dev.Type = *req.Type
	}
	if req.DeviceType != nil {
		dev.DeviceType = *req.DeviceType
	}
	if req.Status != nil {
		dev.Status = *req.Status
	}
	dev.Value = req.Value
	if req.Connected != nil {
		dev.Connected = *req.Connected
	}
	if req.PortServer != nil {
		dev.PortServer = *req.PortServer
	}

	if req.RoomID != nil && *req.RoomID != "" {
		room := s.getAuthorizedRoom(w, r, *req.RoomID)
		if room == nil {
			return
		}
		dev.RoomID = req.RoomID
		dev.InstallationID = &room.InstallationID
	}
	if req.InstallationID != nil && *req.InstallationID != "" && dev.InstallationID == nil {
		if s.getAuthorizedInstallation(w, r, *req.InstallationID) == nil {
			return
		}
		dev.InstallationID = req.InstallationID
	}
	// An unplaced device has no installation context; only admins may
	// create one.
	if dev.InstallationID == nil && !scopeFrom(r.Context()).IsAdmin() {
		writeForbidden(w, "placement in an accessible installation is required")
		return
	}

	if err := s.deviceSvc.Create(r.Context(), dev); err != nil {
		if errors.Is(err, device.ErrNameRequired) || errors.Is(err, device.ErrInvalidDeviceType) {
			writeValidationError(w, err.Error())
			return
		}
		s.logger.Error("creating device", "error", err)
		writeInternalError(w, "failed to create device")
		return
	}

	writeJSON(w, http.StatusCreated, dev)
}

// getAuthorizedDevice loads a device and checks the caller's scope against
// its installation context. Writes the error response and returns nil on
// denial.
func (s *Server) getAuthorizedDevice(w http.ResponseWriter, r *http.Request, id string) *device.Device {
	dev, err := s.devices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return nil
		}
		s.logger.Error("getting device", "device_id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return nil
	}

	if !scopeFrom(r.Context()).CanAccessInstallation(s.deviceInstallationContext(r.Context(), dev)) {
		writeForbidden(w, "no access to this device")
		return nil
	}
	return dev
}

// handleGetDevice returns one device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev := s.getAuthorizedDevice(w, r, chi.URLParam(r, "id"))
	if dev == nil {
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleUpdateDevice applies a device update. Value changes append history;
// placement changes are authorized against the target.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	dev := s.getAuthorizedDevice(w, r, chi.URLParam(r, "id"))
	if dev == nil {
		return
	}

	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Name != nil {
		dev.Name = *req.Name
	}
	if req.Zone != nil {
		dev.Zone = *req.Zone
	}
	if req.Type != nil {
		dev.Type = *req.Type
	}
	if req.DeviceType != nil {
		dev.DeviceType = *req.DeviceType
	}
	if req.Status != nil {
		dev.Status = *req.Status
	}
	if req.Value != nil {
		dev.Value = req.Value
	}
	if req.Connected != nil {
		dev.Connected = *req.Connected
	}
	if req.PortServer != nil {
		dev.PortServer = *req.PortServer
	}

	if req.RoomID != nil {
		if *req.RoomID == "" {
			dev.RoomID = nil
		} else if dev.RoomID == nil || *dev.RoomID != *req.RoomID {
			room := s.getAuthorizedRoom(w, r, *req.RoomID)
			if room == nil {
				return
			}
			dev.RoomID = req.RoomID
			dev.InstallationID = &room.InstallationID
		}
	}
	if req.InstallationID != nil {
		if *req.InstallationID == "" {
			dev.InstallationID = nil
		} else if dev.InstallationID == nil || *dev.InstallationID != *req.InstallationID {
			if s.getAuthorizedInstallation(w, r, *req.InstallationID) == nil {
				return
			}
			dev.InstallationID = req.InstallationID
		}
	}

	if err := s.deviceSvc.Update(r.Context(), dev); err != nil {
		if errors.Is(err, device.ErrNameRequired) || errors.Is(err, device.ErrInvalidDeviceType) {
			writeValidationError(w, err.Error())
			return
		}
		s.logger.Error("updating device", "device_id", dev.ID, "error", err)
		writeInternalError(w, "failed to update device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleDeleteDevice removes a device. History rows are retained.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	dev := s.getAuthorizedDevice(w, r, chi.URLParam(r, "id"))
	if dev == nil {
		return
	}

	if err := s.deviceSvc.Delete(r.Context(), dev.ID); err != nil {
		s.logger.Error("deleting device", "device_id", dev.ID, "error", err)
		writeInternalError(w, "failed to delete device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeviceHistory returns a device's value history within the trailing
// window (?days=N, default 7), oldest first.
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	dev := s.getAuthorizedDevice(w, r, chi.URLParam(r, "id"))
	if dev == nil {
		return
	}

	days, ok := parseDaysParam(w, r)
	if !ok {
		return
	}

	entries, err := s.history.ListByDevice(r.Context(), dev.ID, days)
	if err != nil {
		s.logger.Error("listing device history", "device_id", dev.ID, "error", err)
		writeInternalError(w, "failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
