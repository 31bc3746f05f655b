package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// userColumns is the SELECT column list shared by all user queries.
const userColumns = `id, username, email, first_name, last_name, company, language,
	password_hash, role, blocked, verified,
	verification_token, verification_expires, reset_token, reset_expires,
	created_at, updated_at`

// UserRepository defines the interface for account persistence.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByResetToken(ctx context.Context, token string) (*User, error)
	GetByVerificationToken(ctx context.Context, token string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, user *User) error
	UpdateRole(ctx context.Context, id string, role Role) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	MarkVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// SQLiteUserRepository implements UserRepository using SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed user repository.
func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

// Create inserts a new account. The ID is generated if empty.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = "usr-" + uuid.NewString()[:8]
	}
	if user.Role == "" {
		user.Role = RoleUser
	}

	now := time.Now().UTC().Truncate(time.Second)
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, first_name, last_name, company, language,
			password_hash, role, blocked, verified,
			verification_token, verification_expires, reset_token, reset_expires,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.FirstName, user.LastName,
		user.Company, user.Language,
		user.PasswordHash, string(user.Role), boolToInt(user.Blocked), boolToInt(user.Verified),
		nullString(user.VerificationToken), nullTime(user.VerificationExpires),
		nullString(user.ResetToken), nullTime(user.ResetExpires),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "users.email") {
				return ErrEmailExists
			}
			return ErrUsernameExists
		}
		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its unique ID.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByUsername retrieves an account by username.
func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

// GetByEmail retrieves an account by email address.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

// GetByResetToken retrieves the account holding a password reset token.
// Expiry is not checked here; callers compare ResetExpires themselves.
func (r *SQLiteUserRepository) GetByResetToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE reset_token = ?", token)
}

// GetByVerificationToken retrieves the account holding an email verification token.
func (r *SQLiteUserRepository) GetByVerificationToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE verification_token = ?", token)
}

// List returns all accounts ordered by creation date.
func (r *SQLiteUserRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUserFrom(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	return users, nil
}

// Update modifies an account's mutable profile fields
// (first/last name, company, language, email).
func (r *SQLiteUserRepository) Update(ctx context.Context, user *User) error {
	now := time.Now().UTC().Truncate(time.Second)
	user.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ?, first_name = ?, last_name = ?, company = ?,
			language = ?, updated_at = ? WHERE id = ?`,
		user.Email, user.FirstName, user.LastName, user.Company,
		user.Language, now.Format(time.RFC3339), user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("updating user: %w", err)
	}

	return checkAffected(result)
}

// UpdateRole changes an account's role. Admin-only at the API boundary.
func (r *SQLiteUserRepository) UpdateRole(ctx context.Context, id string, role Role) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET role = ?, updated_at = ? WHERE id = ?",
		string(role), nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	return checkAffected(result)
}

// SetBlocked blocks or unblocks an account.
func (r *SQLiteUserRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET blocked = ?, updated_at = ? WHERE id = ?",
		boolToInt(blocked), nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("updating blocked flag: %w", err)
	}
	return checkAffected(result)
}

// UpdatePassword changes an account's password hash and clears any
// outstanding reset token.
func (r *SQLiteUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, reset_token = NULL, reset_expires = NULL,
			updated_at = ? WHERE id = ?`,
		passwordHash, nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return checkAffected(result)
}

// SetResetToken stores a password reset token and its expiry on the account.
func (r *SQLiteUserRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET reset_token = ?, reset_expires = ?, updated_at = ? WHERE id = ?",
		token, expires.UTC().Format(time.RFC3339), nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("setting reset token: %w", err)
	}
	return checkAffected(result)
}

// MarkVerified flags the account as email-verified and clears the token.
func (r *SQLiteUserRepository) MarkVerified(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET verified = 1, verification_token = NULL,
			verification_expires = NULL, updated_at = ? WHERE id = ?`,
		nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("marking verified: %w", err)
	}
	return checkAffected(result)
}

// Delete removes an account by ID. Permission grants cascade via the schema.
func (r *SQLiteUserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return checkAffected(result)
}

// Count returns the total number of accounts.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// getUser executes a query and scans a single user result.
func (r *SQLiteUserRepository) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	return scanUserFrom(r.db.QueryRowContext(ctx, query, args...))
}

// scanner is an interface covering sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanUserFrom scans a user from any scanner (Row or Rows).
func scanUserFrom(s scanner) (*User, error) {
	var u User
	var role string
	var blocked, verified int
	var verificationToken, resetToken sql.NullString
	var verificationExpires, resetExpires sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.Company, &u.Language,
		&u.PasswordHash, &role, &blocked, &verified,
		&verificationToken, &verificationExpires, &resetToken, &resetExpires,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Role = Role(role)
	u.Blocked = blocked != 0
	u.Verified = verified != 0
	if verificationToken.Valid {
		u.VerificationToken = verificationToken.String
	}
	if resetToken.Valid {
		u.ResetToken = resetToken.String
	}
	u.VerificationExpires = parseNullTime(verificationExpires)
	u.ResetExpires = parseNullTime(resetExpires)

	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &u, nil
}

// Helper functions.

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkAffected(result sql.Result) error {
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "unique constraint"))
}
