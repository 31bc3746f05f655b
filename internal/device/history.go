package device

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// defaultHistoryDays is the trailing window applied when a query does not
// name one.
const defaultHistoryDays = 7

// HistoryRepository stores and retrieves device value history.
//
// Entries are returned oldest first so charts can plot them directly.
type HistoryRepository interface {
	// Append records a device value. The entry's CreatedAt is set by
	// the repository.
	Append(ctx context.Context, entry *HistoryEntry) error

	// ListByDevice returns the device's values within the trailing
	// window of the given number of days (default 7 when days <= 0).
	ListByDevice(ctx context.Context, deviceID string, days int) ([]HistoryEntry, error)

	// ListByInstallation returns values for every device attached to
	// the installation, directly or through a room, within the window.
	ListByInstallation(ctx context.Context, installationID string, days int) ([]HistoryEntry, error)
}

// SQLiteHistoryRepository implements HistoryRepository using SQLite.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new SQLite-backed history repository.
func NewHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// Append records a device value.
func (r *SQLiteHistoryRepository) Append(ctx context.Context, entry *HistoryEntry) error {
	if entry.DeviceID == "" {
		return ErrDeviceNotFound
	}

	now := time.Now().UTC().Truncate(time.Second)
	entry.CreatedAt = now

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO device_history (device_id, device_name, device_type, value, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.DeviceID, entry.DeviceName, entry.DeviceType, entry.Value,
		now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting history for device %s: %w", entry.DeviceID, err)
	}

	entry.ID, _ = result.LastInsertId() //nolint:errcheck // SQLite always supports LastInsertId
	return nil
}

// ListByDevice returns a device's history within the trailing window,
// oldest first.
func (r *SQLiteHistoryRepository) ListByDevice(ctx context.Context, deviceID string, days int) ([]HistoryEntry, error) {
	return r.queryHistory(ctx,
		`SELECT id, device_id, device_name, device_type, value, created_at
		 FROM device_history
		 WHERE device_id = ? AND created_at >= ?
		 ORDER BY created_at ASC, id ASC`,
		deviceID, windowStart(days))
}

// ListByInstallation returns history for all devices under an installation,
// oldest first.
func (r *SQLiteHistoryRepository) ListByInstallation(ctx context.Context, installationID string, days int) ([]HistoryEntry, error) {
	return r.queryHistory(ctx,
		`SELECT h.id, h.device_id, h.device_name, h.device_type, h.value, h.created_at
		 FROM device_history h
		 JOIN devices d ON d.id = h.device_id
		 WHERE (d.installation_id = ?
		        OR d.room_id IN (SELECT id FROM rooms WHERE installation_id = ?))
		   AND h.created_at >= ?
		 ORDER BY h.created_at ASC, h.id ASC`,
		installationID, installationID, windowStart(days))
}

func (r *SQLiteHistoryRepository) queryHistory(ctx context.Context, query string, args ...any) ([]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying device history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.DeviceName, &e.DeviceType,
			&e.Value, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device history: %w", err)
	}
	return entries, nil
}

// windowStart returns the RFC3339 lower bound for a trailing window.
func windowStart(days int) string {
	if days <= 0 {
		days = defaultHistoryDays
	}
	return time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
}
