package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eyamastour/backend-BrightMind/internal/audit"
	"github.com/eyamastour/backend-BrightMind/internal/auth"
	"github.com/eyamastour/backend-BrightMind/internal/installation"
)

// installationRequest is the request body for creating and updating
// installations.
type installationRequest struct {
	Name      string  `json:"name"`
	Cluster   string  `json:"cluster"`
	UserID    string  `json:"user_id"`
	Route     string  `json:"route"`
	BoxID     string  `json:"box_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Parent    string  `json:"parent"`
	Status    string  `json:"status"`
}

// handleListInstallations returns the installations visible to the caller:
// everything for admins, the owned-plus-granted set for users.
func (s *Server) handleListInstallations(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r.Context())

	var (
		list []installation.Installation
		err  error
	)
	if scope.IsAdmin() {
		list, err = s.installations.List(r.Context())
	} else {
		list, err = s.installations.ListByIDs(r.Context(), scope.AccessibleInstallationIDs())
	}
	if err != nil {
		s.logger.Error("listing installations", "error", err)
		writeInternalError(w, "failed to list installations")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleCreateInstallation creates an installation (admin only). The owner
// is fixed at creation.
func (s *Server) handleCreateInstallation(w http.ResponseWriter, r *http.Request) {
	var req installationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeValidationError(w, "user_id is required")
		return
	}
	if _, err := s.users.GetByID(r.Context(), req.UserID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeValidationError(w, "unknown owner "+req.UserID)
			return
		}
		writeInternalError(w, "failed to verify owner")
		return
	}
	if req.Status != "" && req.Status != installation.StatusOnline && req.Status != installation.StatusOffline {
		writeValidationError(w, "status must be online or offline")
		return
	}

	ins := &installation.Installation{
		Name:      req.Name,
		Cluster:   req.Cluster,
		UserID:    req.UserID,
		Route:     req.Route,
		BoxID:     req.BoxID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Parent:    req.Parent,
		Status:    req.Status,
	}
	if err := s.installations.Create(r.Context(), ins); err != nil {
		if errors.Is(err, installation.ErrNameRequired) || errors.Is(err, installation.ErrOwnerRequired) {
			writeValidationError(w, err.Error())
			return
		}
		s.logger.Error("creating installation", "error", err)
		writeInternalError(w, "failed to create installation")
		return
	}

	s.auditLog(audit.ActionInstallationCreated, "installation", ins.ID, userFrom(r.Context()).ID,
		map[string]any{"name": ins.Name, "owner_id": ins.UserID})
	writeJSON(w, http.StatusCreated, ins)
}

// getAuthorizedInstallation loads an installation and checks the caller's
// scope. Writes the error response and returns nil when access is denied.
func (s *Server) getAuthorizedInstallation(w http.ResponseWriter, r *http.Request, id string) *installation.Installation {
	ins, err := s.installations.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, installation.ErrInstallationNotFound) {
			writeNotFound(w, "installation not found")
			return nil
		}
		s.logger.Error("getting installation", "installation_id", id, "error", err)
		writeInternalError(w, "failed to get installation")
		return nil
	}

	if !scopeFrom(r.Context()).CanAccessInstallation(ins.ID) {
		writeForbidden(w, "no access to this installation")
		return nil
	}
	return ins
}

// handleGetInstallation returns one installation the caller may access.
func (s *Server) handleGetInstallation(w http.ResponseWriter, r *http.Request) {
	ins := s.getAuthorizedInstallation(w, r, chi.URLParam(r, "id"))
	if ins == nil {
		return
	}
	writeJSON(w, http.StatusOK, ins)
}

// handleUpdateInstallation updates an installation. The owner cannot be
// changed; a user_id in the body is ignored.
func (s *Server) handleUpdateInstallation(w http.ResponseWriter, r *http.Request) {
	ins := s.getAuthorizedInstallation(w, r, chi.URLParam(r, "id"))
	if ins == nil {
		return
	}

	var req installationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Status != "" && req.Status != installation.StatusOnline && req.Status != installation.StatusOffline {
		writeValidationError(w, "status must be online or offline")
		return
	}

	if req.Name != "" {
		ins.Name = req.Name
	}
	if req.Cluster != "" {
		ins.Cluster = req.Cluster
	}
	if req.Route != "" {
		ins.Route = req.Route
	}
	if req.BoxID != "" {
		ins.BoxID = req.BoxID
	}
	if req.Latitude != 0 {
		ins.Latitude = req.Latitude
	}
	if req.Longitude != 0 {
		ins.Longitude = req.Longitude
	}
	if req.Parent != "" {
		ins.Parent = req.Parent
	}
	if req.Status != "" {
		ins.Status = req.Status
	}

	if err := s.installations.Update(r.Context(), ins); err != nil {
		if errors.Is(err, installation.ErrNameRequired) {
			writeValidationError(w, err.Error())
			return
		}
		s.logger.Error("updating installation", "installation_id", ins.ID, "error", err)
		writeInternalError(w, "failed to update installation")
		return
	}

	writeJSON(w, http.StatusOK, ins)
}

// handleDeleteInstallation removes an installation (admin only). Rooms and
// devices under it are not cascaded.
func (s *Server) handleDeleteInstallation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.installations.Delete(r.Context(), id); err != nil {
		if errors.Is(err, installation.ErrInstallationNotFound) {
			writeNotFound(w, "installation not found")
			return
		}
		s.logger.Error("deleting installation", "installation_id", id, "error", err)
		writeInternalError(w, "failed to delete installation")
		return
	}

	s.auditLog(audit.ActionInstallationDeleted, "installation", id, userFrom(r.Context()).ID, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleListInstallationRooms returns the rooms of an installation the
// caller may access.
func (s *Server) handleListInstallationRooms(w http.ResponseWriter, r *http.Request) {
	ins := s.getAuthorizedInstallation(w, r, chi.URLParam(r, "id"))
	if ins == nil {
		return
	}

	rooms, err := s.rooms.ListByInstallation(r.Context(), ins.ID)
	if err != nil {
		s.logger.Error("listing installation rooms", "installation_id", ins.ID, "error", err)
		writeInternalError(w, "failed to list rooms")
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// handleListInstallationDevices returns all devices under an installation,
// attached directly or through a room.
func (s *Server) handleListInstallationDevices(w http.ResponseWriter, r *http.Request) {
	ins := s.getAuthorizedInstallation(w, r, chi.URLParam(r, "id"))
	if ins == nil {
		return
	}

	devices, err := s.devices.ListByInstallation(r.Context(), ins.ID)
	if err != nil {
		s.logger.Error("listing installation devices", "installation_id", ins.ID, "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleInstallationHistory returns device history for the whole
// installation within the trailing window (?days=N, default 7).
func (s *Server) handleInstallationHistory(w http.ResponseWriter, r *http.Request) {
	ins := s.getAuthorizedInstallation(w, r, chi.URLParam(r, "id"))
	if ins == nil {
		return
	}

	days, ok := parseDaysParam(w, r)
	if !ok {
		return
	}

	entries, err := s.history.ListByInstallation(r.Context(), ins.ID, days)
	if err != nil {
		s.logger.Error("listing installation history", "installation_id", ins.ID, "error", err)
		writeInternalError(w, "failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// parseDaysParam reads the optional ?days query parameter. Zero means the
// repository default.
func parseDaysParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 0, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		writeBadRequest(w, "days must be a non-negative integer")
		return 0, false
	}
	return days, true
}
