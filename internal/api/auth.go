package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eyamastour/backend-BrightMind/internal/auth"
)

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// signupRequest is the request body for POST /auth/signup.
type signupRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Language  string `json:"language"`
}

// loginRequest is the request body for POST /auth/login.
// Identifier accepts a username or an email address.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int        `json:"expires_in"`
	User        *auth.User `json:"user"`
}

// handleSignup registers a new account and mails a verification link.
// New accounts always start with the user role; only an admin can promote.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
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

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	token, err := auth.GenerateMailToken()
	if err != nil {
		s.logger.Error("generating verification token", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	expires := time.Now().UTC().Add(time.Duration(s.tokenTTLHours()) * time.Hour)
	user := &auth.User{
		Username:            req.Username,
		Email:               strings.ToLower(req.Email),
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Company:             req.Company,
		Language:            req.Language,
		PasswordHash:        hash,
		Role:                auth.RoleUser,
		VerificationToken:   token,
		VerificationExpires: &expires,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameExists):
			writeConflict(w, "username already taken")
		case errors.Is(err, auth.ErrEmailExists):
			writeConflict(w, "email already registered")
		default:
			s.logger.Error("creating account", "error", err)
			writeInternalError(w, "failed to create account")
		}
		return
	}

	if err := s.mailer.SendVerification(r.Context(), user.Email, token); err != nil {
		s.logger.Error("sending verification mail", "email", user.Email, "error", err)
	}

	writeJSON(w, http.StatusCreated, user)
}

// handleLogin authenticates an account and returns a JWT access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	user, err := s.lookupAccount(r, req.Username)
	if err != nil {
		// Hash anyway to keep timing comparable for unknown accounts.
		_, _ = auth.HashPassword(req.Password) //nolint:errcheck // timing equalisation only
		writeUnauthorized(w, "invalid credentials")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		writeUnauthorized(w, "invalid credentials")
		return
	}
	if user.Blocked {
		writeForbidden(w, "account is blocked")
		return
	}
	if !user.Verified {
		writeForbidden(w, "email address not verified")
		return
	}

	ttl := s.secCfg.JWT.AccessTokenTTL
	signed, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("generating access token", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}
	if ttl <= 0 {
		ttl = 15
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   ttl * 60, // seconds
		User:        user,
	})
}

// lookupAccount finds an account by username, or by email when the
// identifier contains an @.
func (s *Server) lookupAccount(r *http.Request, identifier string) (*auth.User, error) {
	if strings.Contains(identifier, "@") {
		return s.users.GetByEmail(r.Context(), strings.ToLower(identifier))
	}
	return s.users.GetByUsername(r.Context(), identifier)
}

// handleForgotPassword issues a password-reset token and mails it.
// The response is identical whether or not the email exists.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !auth.IsValidEmail(req.Email) {
		writeValidationError(w, "invalid email address")
		return
	}

	response := map[string]string{"message": "if the address exists, a reset mail was sent"}

	user, err := s.users.GetByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		writeJSON(w, http.StatusOK, response)
		return
	}

	token, err := auth.GenerateMailToken()
	if err != nil {
		s.logger.Error("generating reset token", "error", err)
		writeInternalError(w, "failed to process request")
		return
	}

	expires := time.Now().UTC().Add(time.Duration(s.tokenTTLHours()) * time.Hour)
	if err := s.users.SetResetToken(r.Context(), user.ID, token, expires); err != nil {
		s.logger.Error("storing reset token", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to process request")
		return
	}

	if err := s.mailer.SendPasswordReset(r.Context(), user.Email, token); err != nil {
		s.logger.Error("sending reset mail", "email", user.Email, "error", err)
	}

	writeJSON(w, http.StatusOK, response)
}

// handleResetPassword consumes a reset token and sets the new password.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Token == "" {
		writeBadRequest(w, "token is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeValidationError(w, "password must be at least 8 characters")
		return
	}

	user, err := s.users.GetByResetToken(r.Context(), req.Token)
	if err != nil {
		writeBadRequest(w, "invalid or expired token")
		return
	}
	if user.ResetExpires == nil || time.Now().After(*user.ResetExpires) {
		writeBadRequest(w, "invalid or expired token")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		writeInternalError(w, "failed to reset password")
		return
	}

	if err := s.users.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		s.logger.Error("updating password", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to reset password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// handleVerifyEmail consumes a verification token and activates the account.
func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeBadRequest(w, "token is required")
		return
	}

	user, err := s.users.GetByVerificationToken(r.Context(), token)
	if err != nil {
		writeBadRequest(w, "invalid or expired token")
		return
	}
	if user.VerificationExpires == nil || time.Now().After(*user.VerificationExpires) {
		writeBadRequest(w, "invalid or expired token")
		return
	}

	if err := s.users.MarkVerified(r.Context(), user.ID); err != nil {
		s.logger.Error("marking account verified", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to verify account")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}

// handleMe returns the authenticated account and its accessible
// installations.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	scope := scopeFrom(r.Context())

	var accessible []string
	if !scope.IsAdmin() {
		accessible = scope.AccessibleInstallationIDs()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":          user,
		"installations": accessible,
	})
}

// tokenTTLHours returns the configured mail-token lifetime.
func (s *Server) tokenTTLHours() int {
	if s.secCfg.TokenTTLHours <= 0 {
		return 24
	}
	return s.secCfg.TokenTTLHours
}
