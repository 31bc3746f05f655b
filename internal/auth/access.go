package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AccessScope holds the resolved installation access for a request.
//
// It is computed once at the API boundary (role from the verified account,
// owned set from the installation store, permitted set from the grant
// allow-list) and passed down instead of re-querying per check.
type AccessScope struct {
	UserID string
	Role   Role

	owned     map[string]struct{}
	permitted map[string]struct{}
}

// NewAccessScope builds a scope from the resolved owned and permitted
// installation ID sets.
func NewAccessScope(userID string, role Role, owned, permitted []string) *AccessScope {
	s := &AccessScope{
		UserID:    userID,
		Role:      role,
		owned:     make(map[string]struct{}, len(owned)),
		permitted: make(map[string]struct{}, len(permitted)),
	}
	for _, id := range owned {
		s.owned[id] = struct{}{}
	}
	for _, id := range permitted {
		s.permitted[id] = struct{}{}
	}
	return s
}

// IsAdmin returns true for admin accounts, which bypass installation scoping.
func (s *AccessScope) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// CanAccessInstallation decides the authorization rule for a resource whose
// owning installation is installationID:
//
//	ALLOW if the requester is an admin
//	ALLOW if the requester owns the installation
//	ALLOW if the installation is in the requester's permission list
//	DENY otherwise
//
// An empty installationID means the resource has no installation context
// (a device with neither room nor installation); only admins may touch it.
func (s *AccessScope) CanAccessInstallation(installationID string) bool {
	if s.IsAdmin() {
		return true
	}
	if installationID == "" {
		return false
	}
	if _, ok := s.owned[installationID]; ok {
		return true
	}
	_, ok := s.permitted[installationID]
	return ok
}

// AccessibleInstallationIDs returns the union of owned and permitted
// installation IDs. Callers must not use this for admins, whose scope is
// unbounded; check IsAdmin first.
func (s *AccessScope) AccessibleInstallationIDs() []string {
	ids := make([]string, 0, len(s.owned)+len(s.permitted))
	for id := range s.owned {
		ids = append(ids, id)
	}
	for id := range s.permitted {
		if _, dup := s.owned[id]; !dup {
			ids = append(ids, id)
		}
	}
	return ids
}

// AccessRepository defines the interface for installation permission grants.
type AccessRepository interface {
	Grant(ctx context.Context, userID, installationID, createdBy string) error
	Revoke(ctx context.Context, userID, installationID string) error
	SetGrants(ctx context.Context, userID string, installationIDs []string, createdBy string) error
	ListGrants(ctx context.Context, userID string) ([]InstallationGrant, error)
	GrantedInstallationIDs(ctx context.Context, userID string) ([]string, error)
}

// SQLiteAccessRepository implements AccessRepository using SQLite.
type SQLiteAccessRepository struct {
	db *sql.DB
}

// NewAccessRepository creates a new SQLite-backed access repository.
func NewAccessRepository(db *sql.DB) *SQLiteAccessRepository {
	return &SQLiteAccessRepository{db: db}
}

// Grant adds a single installation to a user's permission list.
// Granting an already-granted installation is a no-op.
func (r *SQLiteAccessRepository) Grant(ctx context.Context, userID, installationID, createdBy string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_installation_access (user_id, installation_id, created_by)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id, installation_id) DO NOTHING`,
		userID, installationID, nullString(createdBy))
	if err != nil {
		return fmt.Errorf("granting installation %s: %w", installationID, err)
	}
	return nil
}

// Revoke removes a single installation from a user's permission list.
func (r *SQLiteAccessRepository) Revoke(ctx context.Context, userID, installationID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM user_installation_access WHERE user_id = ? AND installation_id = ?",
		userID, installationID)
	if err != nil {
		return fmt.Errorf("revoking installation %s: %w", installationID, err)
	}
	return nil
}

// SetGrants replaces all grants for a user in a single transaction.
// Pass an empty slice to revoke everything.
func (r *SQLiteAccessRepository) SetGrants(ctx context.Context, userID string, installationIDs []string, createdBy string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM user_installation_access WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clearing grants: %w", err)
	}

	for _, id := range installationIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_installation_access (user_id, installation_id, created_by) VALUES (?, ?, ?)",
			userID, id, nullString(createdBy)); err != nil {
			return fmt.Errorf("granting installation %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing grants: %w", err)
	}
	return nil
}

// ListGrants returns all grants for a user ordered by installation ID.
func (r *SQLiteAccessRepository) ListGrants(ctx context.Context, userID string) ([]InstallationGrant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, installation_id, created_by, created_at
		 FROM user_installation_access WHERE user_id = ? ORDER BY installation_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing grants: %w", err)
	}
	defer rows.Close()

	grants := []InstallationGrant{}
	for rows.Next() {
		var g InstallationGrant
		var createdBy sql.NullString
		var createdAt string

		if err := rows.Scan(&g.UserID, &g.InstallationID, &createdBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		if createdBy.Valid {
			g.CreatedBy = createdBy.String
		}
		g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating grants: %w", err)
	}

	return grants, nil
}

// GrantedInstallationIDs returns just the installation IDs a user holds
// grants for.
func (r *SQLiteAccessRepository) GrantedInstallationIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT installation_id FROM user_installation_access WHERE user_id = ? ORDER BY installation_id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("getting granted installations: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning installation ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating installation IDs: %w", err)
	}

	return ids, nil
}
