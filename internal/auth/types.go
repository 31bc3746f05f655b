package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// emailPattern is a pragmatic email shape check; deliverability is the
// mailer's problem.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// IsValidEmail checks if an email address is plausibly well formed.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleUser is a regular account. Sees only installations it owns or
	// holds an explicit permission grant for.
	RoleUser Role = "user"

	// RoleAdmin has full control: every installation, room and device,
	// plus user management. Bypasses ownership and permission scoping.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles an account may hold.
var ValidRoles = []Role{RoleUser, RoleAdmin}

// IsValidRole returns true if the role is a valid account role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// ValidLanguages are the interface languages an account can select.
var ValidLanguages = []string{"francais", "anglais", "italien"}

// IsValidLanguage returns true if the language is supported.
func IsValidLanguage(lang string) bool {
	for _, v := range ValidLanguages {
		if lang == v {
			return true
		}
	}
	return false
}

// User represents an account.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Company      string `json:"company,omitempty"`
	Language     string `json:"language,omitempty"`
	PasswordHash string `json:"-"` // never serialised
	Role         Role   `json:"role"`
	Blocked      bool   `json:"blocked"`
	Verified     bool   `json:"verified"`

	// Email verification and password reset tokens, with expiry.
	VerificationToken   string     `json:"-"`
	VerificationExpires *time.Time `json:"-"`
	ResetToken          string     `json:"-"`
	ResetExpires        *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InstallationGrant is one entry in a user's installation permission list.
type InstallationGrant struct {
	UserID         string    `json:"user_id"`
	InstallationID string    `json:"installation_id"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserBlocked        = errors.New("user account is blocked")
	ErrUserNotVerified    = errors.New("user account is not verified")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already registered")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("insufficient permissions")
)
