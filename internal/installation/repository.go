package installation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// installationColumns is the SELECT column list shared by installation queries.
const installationColumns = `id, name, cluster, user_id, route, box_id,
	latitude, longitude, parent, is_cluster, status, created_at, updated_at`

// Repository defines the interface for installation persistence.
type Repository interface {
	Create(ctx context.Context, ins *Installation) error
	GetByID(ctx context.Context, id string) (*Installation, error)
	List(ctx context.Context) ([]Installation, error)
	ListByIDs(ctx context.Context, ids []string) ([]Installation, error)
	ListOwnedIDs(ctx context.Context, userID string) ([]string, error)
	Update(ctx context.Context, ins *Installation) error
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed installation repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new installation. The ID is generated if empty, the
// cluster name defaults to the installation name, and IsCluster is derived
// from the parent.
func (r *SQLiteRepository) Create(ctx context.Context, ins *Installation) error {
	if ins.Name == "" {
		return ErrNameRequired
	}
	if ins.UserID == "" {
		return ErrOwnerRequired
	}
	if ins.ID == "" {
		ins.ID = "ins-" + uuid.NewString()[:8]
	}
	if ins.Cluster == "" {
		ins.Cluster = ins.Name
	}
	if ins.Parent == "" {
		ins.Parent = ParentRoot
	}
	ins.IsCluster = ins.Parent == ParentRoot
	if ins.Status == "" {
		ins.Status = StatusOffline
	}

	now := time.Now().UTC().Truncate(time.Second)
	ins.CreatedAt = now
	ins.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO installations (id, name, cluster, user_id, route, box_id,
			latitude, longitude, parent, is_cluster, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ins.ID, ins.Name, ins.Cluster, ins.UserID, ins.Route, ins.BoxID,
		ins.Latitude, ins.Longitude, ins.Parent, boolToInt(ins.IsCluster),
		ins.Status, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting installation %s: %w", ins.ID, err)
	}
	return nil
}

// GetByID returns a single installation.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Installation, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+installationColumns+" FROM installations WHERE id = ?", id)
	return scanInstallation(row)
}

// List returns all installations ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Installation, error) {
	return r.queryInstallations(ctx,
		"SELECT "+installationColumns+" FROM installations ORDER BY name")
}

// ListByIDs returns the installations matching the given IDs.
// Unknown IDs are silently skipped; an empty input returns an empty slice.
func (r *SQLiteRepository) ListByIDs(ctx context.Context, ids []string) ([]Installation, error) {
	if len(ids) == 0 {
		return []Installation{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	return r.queryInstallations(ctx,
		"SELECT "+installationColumns+" FROM installations WHERE id IN ("+placeholders+") ORDER BY name",
		args...)
}

// ListOwnedIDs returns the IDs of installations owned by a user.
func (r *SQLiteRepository) ListOwnedIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM installations WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("listing owned installations: %w", err)
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

// Update modifies an installation's mutable fields. The owner (user_id) is
// immutable and not part of the statement; IsCluster tracks the parent.
func (r *SQLiteRepository) Update(ctx context.Context, ins *Installation) error {
	if ins.Name == "" {
		return ErrNameRequired
	}
	if ins.Parent == "" {
		ins.Parent = ParentRoot
	}
	ins.IsCluster = ins.Parent == ParentRoot

	now := time.Now().UTC().Truncate(time.Second)
	ins.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`UPDATE installations SET name = ?, cluster = ?, route = ?, box_id = ?,
			latitude = ?, longitude = ?, parent = ?, is_cluster = ?, status = ?,
			updated_at = ?
		 WHERE id = ?`,
		ins.Name, ins.Cluster, ins.Route, ins.BoxID,
		ins.Latitude, ins.Longitude, ins.Parent, boolToInt(ins.IsCluster),
		ins.Status, now.Format(time.RFC3339), ins.ID)
	if err != nil {
		return fmt.Errorf("updating installation %s: %w", ins.ID, err)
	}

	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrInstallationNotFound
	}
	return nil
}

// Delete removes an installation and its permission grants in a single
// transaction. Rooms and devices under the installation are NOT touched;
// they keep their installation reference even though it now dangles.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	result, err := tx.ExecContext(ctx, "DELETE FROM installations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting installation %s: %w", id, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrInstallationNotFound
	}

	// The permission allow-list must not keep entries for a deleted id.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM user_installation_access WHERE installation_id = ?", id); err != nil {
		return fmt.Errorf("clearing grants for installation %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing installation delete: %w", err)
	}
	return nil
}

// queryInstallations executes a query and returns a slice of Installation.
func (r *SQLiteRepository) queryInstallations(ctx context.Context, query string, args ...any) ([]Installation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying installations: %w", err)
	}
	defer rows.Close()

	installations := []Installation{}
	for rows.Next() {
		ins, err := scanInstallationRow(rows)
		if err != nil {
			return nil, err
		}
		installations = append(installations, *ins)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating installations: %w", err)
	}
	return installations, nil
}

// scanInstallation scans a single row (for QueryRow).
func scanInstallation(row *sql.Row) (*Installation, error) {
	ins, err := scanInstallationFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInstallationNotFound
		}
		return nil, err
	}
	return ins, nil
}

// scanInstallationRow scans an installation from a Rows cursor.
func scanInstallationRow(rows *sql.Rows) (*Installation, error) {
	return scanInstallationFrom(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstallationFrom(s scanner) (*Installation, error) {
	var ins Installation
	var isCluster int
	var createdAt, updatedAt string

	err := s.Scan(&ins.ID, &ins.Name, &ins.Cluster, &ins.UserID, &ins.Route,
		&ins.BoxID, &ins.Latitude, &ins.Longitude, &ins.Parent, &isCluster,
		&ins.Status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning installation: %w", err)
	}

	ins.IsCluster = isCluster != 0
	ins.CreatedAt = parseTime(createdAt)
	ins.UpdatedAt = parseTime(updatedAt)
	return &ins, nil
}

// parseTime parses an RFC3339 timestamp stored in SQLite.
// Timestamps are written by this package, so a parse failure yields the
// zero time rather than an error.
func parseTime(value string) time.Time {
	t, _ := time.Parse(time.RFC3339, value) //nolint:errcheck // format is controlled
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
