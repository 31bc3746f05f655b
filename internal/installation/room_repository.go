package installation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const roomColumns = "id, name, description, installation_id, created_at, updated_at"

// RoomRepository defines the interface for room persistence.
type RoomRepository interface {
	Create(ctx context.Context, room *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context) ([]Room, error)
	ListByInstallation(ctx context.Context, installationID string) ([]Room, error)
	Update(ctx context.Context, room *Room) error
	Delete(ctx context.Context, id string) error
}

// SQLiteRoomRepository implements RoomRepository using SQLite.
type SQLiteRoomRepository struct {
	db *sql.DB
}

// NewRoomRepository creates a new SQLite-backed room repository.
func NewRoomRepository(db *sql.DB) *SQLiteRoomRepository {
	return &SQLiteRoomRepository{db: db}
}

// Create inserts a new room into its installation.
func (r *SQLiteRoomRepository) Create(ctx context.Context, room *Room) error {
	if room.Name == "" {
		return ErrNameRequired
	}
	if room.InstallationID == "" {
		return ErrInstallationRequired
	}
	if room.ID == "" {
		room.ID = "roo-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Truncate(time.Second)
	room.CreatedAt = now
	room.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (id, name, description, installation_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		room.ID, room.Name, room.Description, room.InstallationID,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting room %s: %w", room.ID, err)
	}
	return nil
}

// GetByID returns a single room.
func (r *SQLiteRoomRepository) GetByID(ctx context.Context, id string) (*Room, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE id = ?", id)

	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// List returns all rooms ordered by name.
func (r *SQLiteRoomRepository) List(ctx context.Context) ([]Room, error) {
	return r.queryRooms(ctx,
		"SELECT "+roomColumns+" FROM rooms ORDER BY name")
}

// ListByInstallation returns the rooms belonging to an installation.
func (r *SQLiteRoomRepository) ListByInstallation(ctx context.Context, installationID string) ([]Room, error) {
	return r.queryRooms(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE installation_id = ? ORDER BY name",
		installationID)
}

// Update modifies a room. Changing InstallationID moves the room between
// installations; the room's devices are re-homed to the new installation in
// the same transaction so their stored installation reference never goes
// stale.
func (r *SQLiteRoomRepository) Update(ctx context.Context, room *Room) error {
	if room.Name == "" {
		return ErrNameRequired
	}
	if room.InstallationID == "" {
		return ErrInstallationRequired
	}

	now := time.Now().UTC().Truncate(time.Second)
	room.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	result, err := tx.ExecContext(ctx,
		`UPDATE rooms SET name = ?, description = ?, installation_id = ?, updated_at = ?
		 WHERE id = ?`,
		room.Name, room.Description, room.InstallationID,
		now.Format(time.RFC3339), room.ID)
	if err != nil {
		return fmt.Errorf("updating room %s: %w", room.ID, err)
	}

	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrRoomNotFound
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE devices SET installation_id = ? WHERE room_id = ?",
		room.InstallationID, room.ID); err != nil {
		return fmt.Errorf("re-homing devices of room %s: %w", room.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing room update: %w", err)
	}
	return nil
}

// Delete removes a room and detaches its devices in a single transaction.
// Devices keep their installation reference and become room-less.
func (r *SQLiteRoomRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	result, err := tx.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting room %s: %w", id, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrRoomNotFound
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE devices SET room_id = NULL WHERE room_id = ?", id); err != nil {
		return fmt.Errorf("detaching devices from room %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing room delete: %w", err)
	}
	return nil
}

func (r *SQLiteRoomRepository) queryRooms(ctx context.Context, query string, args ...any) ([]Room, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	rooms := []Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rooms: %w", err)
	}
	return rooms, nil
}

func scanRoom(s scanner) (*Room, error) {
	var room Room
	var createdAt, updatedAt string

	err := s.Scan(&room.ID, &room.Name, &room.Description, &room.InstallationID,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning room: %w", err)
	}

	room.CreatedAt = parseTime(createdAt)
	room.UpdatedAt = parseTime(updatedAt)
	return &room, nil
}
