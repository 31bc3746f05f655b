package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eyamastour/backend-BrightMind/internal/audit"
	"github.com/eyamastour/backend-BrightMind/internal/auth"
)

// All handlers in this file run behind adminOnlyMiddleware.

// handleListUsers returns every account.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.logger.Error("listing users", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleCreateUser creates an account directly, bypassing the signup flow.
// Accounts created this way are verified immediately and carry the given
// role; no verification mail is sent.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		signupRequest
		Role auth.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if !auth.IsValidUsername(req.Username) {
		writeValidationError(w, "invalid username")
		return
	}
	if !auth.IsValidEmail(req.Email) {
		writeValidationError(w, "invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeValidationError(w, "password must be at least 8 characters")
		return
	}
	if req.Language != "" && !auth.IsValidLanguage(req.Language) {
		writeValidationError(w, "unsupported language")
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleUser
	}
	if !auth.IsValidRole(req.Role) {
		writeValidationError(w, "role must be user or admin")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	user := &auth.User{
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Company:      req.Company,
		Language:     req.Language,
		PasswordHash: hash,
		Role:         req.Role,
		Verified:     true,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameExists):
			writeConflict(w, "username already taken")
		case errors.Is(err, auth.ErrEmailExists):
			writeConflict(w, "email already registered")
		default:
			s.logger.Error("creating user", "error", err)
			writeInternalError(w, "failed to create user")
		}
		return
	}

	s.auditLog(audit.ActionUserCreated, "user", user.ID, userFrom(r.Context()).ID,
		map[string]any{"username": user.Username, "role": user.Role})
	writeJSON(w, http.StatusCreated, user)
}

// handleGetUser returns a single account.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("getting user", "error", err)
		writeInternalError(w, "failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// updateUserRequest is the request body for PUT /users/{id}.
// Username is immutable; role, blocked and password are managed through
// their own endpoints.
type updateUserRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Company   *string `json:"company"`
	Language  *string `json:"language"`
}

// handleUpdateUser updates an account's profile fields.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		writeInternalError(w, "failed to get user")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Email != nil {
		if !auth.IsValidEmail(*req.Email) {
			writeValidationError(w, "invalid email address")
			return
		}
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Company != nil {
		user.Company = *req.Company
	}
	if req.Language != nil {
		if !auth.IsValidLanguage(*req.Language) {
			writeValidationError(w, "unsupported language")
			return
		}
		user.Language = *req.Language
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("updating user", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes an account. Grants cascade with it; owned
// installations remain, still owned by the deleted ID.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == userFrom(r.Context()).ID {
		writeConflict(w, "cannot delete your own account")
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("deleting user", "user_id", id, "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	s.auditLog(audit.ActionUserDeleted, "user", id, userFrom(r.Context()).ID, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateUserRole changes an account's role.
func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role auth.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !auth.IsValidRole(req.Role) {
		writeValidationError(w, "role must be user or admin")
		return
	}

	id := chi.URLParam(r, "id")
	if id == userFrom(r.Context()).ID && req.Role != auth.RoleAdmin {
		writeConflict(w, "cannot demote your own account")
		return
	}

	if err := s.users.UpdateRole(r.Context(), id, req.Role); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("updating role", "user_id", id, "error", err)
		writeInternalError(w, "failed to update role")
		return
	}

	s.auditLog(audit.ActionUserRoleChanged, "user", id, userFrom(r.Context()).ID,
		map[string]any{"role": req.Role})
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "role": req.Role})
}

// handleBlockUser blocks an account. Blocked accounts fail the auth
// middleware on their next request even with a live token.
func (s *Server) handleBlockUser(w http.ResponseWriter, r *http.Request) {
	s.setBlocked(w, r, true)
}

// handleUnblockUser lifts a block.
func (s *Server) handleUnblockUser(w http.ResponseWriter, r *http.Request) {
	s.setBlocked(w, r, false)
}

func (s *Server) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	id := chi.URLParam(r, "id")
	if blocked && id == userFrom(r.Context()).ID {
		writeConflict(w, "cannot block your own account")
		return
	}

	if err := s.users.SetBlocked(r.Context(), id, blocked); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("setting blocked flag", "user_id", id, "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	action := audit.ActionUserBlocked
	if !blocked {
		action = audit.ActionUserUnblocked
	}
	s.auditLog(action, "user", id, userFrom(r.Context()).ID, nil)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "blocked": blocked})
}

// handleListUserPermissions returns a user's installation grants.
func (s *Server) handleListUserPermissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.users.GetByID(r.Context(), id); err != nil {
		writeNotFound(w, "user not found")
		return
	}

	grants, err := s.access.ListGrants(r.Context(), id)
	if err != nil {
		s.logger.Error("listing grants", "user_id", id, "error", err)
		writeInternalError(w, "failed to list permissions")
		return
	}
	writeJSON(w, http.StatusOK, grants)
}

// handleSetUserPermissions replaces a user's installation permission list.
func (s *Server) handleSetUserPermissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.users.GetByID(r.Context(), id); err != nil {
		writeNotFound(w, "user not found")
		return
	}

	var req struct {
		InstallationIDs []string `json:"installation_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	// Every referenced installation must exist.
	for _, insID := range req.InstallationIDs {
		if _, err := s.installations.GetByID(r.Context(), insID); err != nil {
			writeValidationError(w, "unknown installation "+insID)
			return
		}
	}

	admin := userFrom(r.Context())
	if err := s.access.SetGrants(r.Context(), id, req.InstallationIDs, admin.ID); err != nil {
		s.logger.Error("replacing grants", "user_id", id, "error", err)
		writeInternalError(w, "failed to update permissions")
		return
	}

	s.auditLog(audit.ActionPermissionsReplaced, "user", id, admin.ID,
		map[string]any{"installation_ids": req.InstallationIDs})
	writeJSON(w, http.StatusOK, map[string]any{
		"id":               id,
		"installation_ids": req.InstallationIDs,
	})
}
