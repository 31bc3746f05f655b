package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eyamastour/backend-BrightMind/internal/device"
	"github.com/eyamastour/backend-BrightMind/internal/installation"
)

// roomRequest is the request body for creating and updating rooms.
type roomRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	InstallationID string `json:"installation_id"`
}

// handleListRooms returns the rooms of every installation the caller may
// access.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	if scope.IsAdmin() {
		rooms, err := s.rooms.List(r.Context())
		if err != nil {
			s.logger.Error("listing rooms", "error", err)
			writeInternalError(w, "failed to list rooms")
			return
		}
		writeJSON(w, http.StatusOK, rooms)
		return
	}

	rooms := []installation.Room{}
	for _, insID := range scope.AccessibleInstallationIDs() {
		batch, err := s.rooms.ListByInstallation(r.Context(), insID)
		if err != nil {
			s.logger.Error("listing rooms", "installation_id", insID, "error", err)
			writeInternalError(w, "failed to list rooms")
			return
		}
		rooms = append(rooms, batch...)
	}
	writeJSON(w, http.StatusOK, rooms)
}

// handleCreateRoom creates a room inside an installation the caller may
// access.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.InstallationID == "" {
		writeValidationError(w, "installation_id is required")
		return
	}

	if s.getAuthorizedInstallation(w, r, req.InstallationID) == nil {
		return
	}

	room := &installation.Room{
		Name:           req.Name,
		Description:    req.Description,
		InstallationID: req.InstallationID,
	}
	if err := s.rooms.Create(r.Context(), room); err != nil {
		if errors.Is(err, installation.ErrNameRequired) {
			writeValidationError(w, err.Error())
			return
		}
		s.logger.Error("creating room", "error", err)
		writeInternalError(w, "failed to create room")
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

// getAuthorizedRoom loads a room and checks the caller's scope against its
// installation. Writes the error response and returns nil on denial.
func (s *Server) getAuthorizedRoom(w http.ResponseWriter, r *http.Request, id string) *installation.Room {
	room, err := s.rooms.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, installation.ErrRoomNotFound) {
			writeNotFound(w, "room not found")
			return nil
		}
		s.logger.Error("getting room", "room_id", id, "error", err)
		writeInternalError(w, "failed to get room")
		return nil
	}

	if !scopeFrom(r.Context()).CanAccessInstallation(room.InstallationID) {
		writeForbidden(w, "no access to this room")
		return nil
	}
	return room
}

// handleGetRoom returns one room.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room := s.getAuthorizedRoom(w, r, chi.URLParam(r, "id"))
	if room == nil {
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// handleUpdateRoom updates a room. Changing installation_id moves the room;
// the caller needs access to both source and target installations.
func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	room := s.getAuthorizedRoom(w, r, chi.URLParam(r, "id"))
	if room == nil {
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.InstallationID != "" && req.InstallationID != room.InstallationID {
		if s.getAuthorizedInstallation(w, r, req.InstallationID) == nil {
			return
		}
		room.InstallationID = req.InstallationID
	}
	if req.Name != "" {
		room.Name = req.Name
	}
	if req.Description != "" {
		room.Description = req.Description
	}

	if err := s.rooms.Update(r.Context(), room); err != nil {
		if errors.Is(err, installation.ErrNameRequired) {
			writeValidationError(w, err.Error())
			return
		}
		s.logger.Error("updating room", "room_id", room.ID, "error", err)
		writeInternalError(w, "failed to update room")
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// handleDeleteRoom removes a room. Its devices stay, detached from the room
// but still attached to the installation.
func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	room := s.getAuthorizedRoom(w, r, chi.URLParam(r, "id"))
	if room == nil {
		return
	}

	if err := s.rooms.Delete(r.Context(), room.ID); err != nil {
		s.logger.Error("deleting room", "room_id", room.ID, "error", err)
		writeInternalError(w, "failed to delete room")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListRoomDevices returns the devices inside a room.
func (s *Server) handleListRoomDevices(w http.ResponseWriter, r *http.Request) {
	room := s.getAuthorizedRoom(w, r, chi.URLParam(r, "id"))
	if room == nil {
		return
	}

	devices, err := s.devices.ListByRoom(r.Context(), room.ID)
	if err != nil {
		s.logger.Error("listing room devices", "room_id", room.ID, "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleAttachRoomDevice places an existing device into a room. A device
// already placed in another room is a conflict; it has to be detached first.
func (s *Server) handleAttachRoomDevice(w http.ResponseWriter, r *http.Request) {
	room := s.getAuthorizedRoom(w, r, chi.URLParam(r, "id"))
	if room == nil {
		return
	}

	dev, err := s.devices.GetByID(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}
	if !scopeFrom(r.Context()).CanAccessInstallation(s.deviceInstallationContext(r.Context(), dev)) {
		writeForbidden(w, "no access to this device")
		return
	}

	if dev.RoomID != nil && *dev.RoomID != "" {
		if *dev.RoomID == room.ID {
			writeJSON(w, http.StatusOK, dev)
			return
		}
		writeConflict(w, "device already assigned to a room")
		return
	}

	dev.RoomID = &room.ID
	dev.InstallationID = &room.InstallationID
	if err := s.deviceSvc.Update(r.Context(), dev); err != nil {
		s.logger.Error("attaching device", "device_id", dev.ID, "room_id", room.ID, "error", err)
		writeInternalError(w, "failed to attach device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleDetachRoomDevice removes a device from a room. The device keeps its
// installation attachment.
func (s *Server) handleDetachRoomDevice(w http.ResponseWriter, r *http.Request) {
	room := s.getAuthorizedRoom(w, r, chi.URLParam(r, "id"))
	if room == nil {
		return
	}

	dev, err := s.devices.GetByID(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}
	if dev.RoomID == nil || *dev.RoomID != room.ID {
		writeConflict(w, "device is not in this room")
		return
	}

	dev.RoomID = nil
	if err := s.deviceSvc.Update(r.Context(), dev); err != nil {
		s.logger.Error("detaching device", "device_id", dev.ID, "room_id", room.ID, "error", err)
		writeInternalError(w, "failed to detach device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}
