package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const deviceColumns = `id, name, zone, type, device_type, status, value,
	connected, port_server, room_id, installation_id, created_at, updated_at`

// Repository defines the interface for device persistence.
type Repository interface {
	Create(ctx context.Context, dev *Device) error
	GetByID(ctx context.Context, id string) (*Device, error)
	List(ctx context.Context) ([]Device, error)
	ListByRoom(ctx context.Context, roomID string) ([]Device, error)
	ListByInstallation(ctx context.Context, installationID string) ([]Device, error)
	ListByInstallations(ctx context.Context, installationIDs []string) ([]Device, error)
	Update(ctx context.Context, dev *Device) error
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed device repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new device. The ID is generated if empty and the type
// defaults to sensor.
func (r *SQLiteRepository) Create(ctx context.Context, dev *Device) error {
	if dev.Name == "" {
		return ErrNameRequired
	}
	if dev.DeviceType == "" {
		dev.DeviceType = TypeSensor
	}
	if !IsValidDeviceType(dev.DeviceType) {
		return ErrInvalidDeviceType
	}
	if dev.ID == "" {
		dev.ID = "dev-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Truncate(time.Second)
	dev.CreatedAt = now
	dev.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (id, name, zone, type, device_type, status, value,
			connected, port_server, room_id, installation_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dev.ID, dev.Name, dev.Zone, dev.Type, dev.DeviceType, dev.Status,
		nullFloat(dev.Value), boolToInt(dev.Connected), dev.PortServer,
		nullString(dev.RoomID), nullString(dev.InstallationID),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting device %s: %w", dev.ID, err)
	}
	return nil
}

// GetByID returns a single device.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE id = ?", id)

	dev, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return dev, nil
}

// List returns all devices ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	return r.queryDevices(ctx,
		"SELECT "+deviceColumns+" FROM devices ORDER BY name")
}

// ListByRoom returns the devices inside a room.
func (r *SQLiteRepository) ListByRoom(ctx context.Context, roomID string) ([]Device, error) {
	return r.queryDevices(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE room_id = ? ORDER BY name",
		roomID)
}

// ListByInstallation returns devices attached to an installation, whether
// directly or through one of its rooms.
func (r *SQLiteRepository) ListByInstallation(ctx context.Context, installationID string) ([]Device, error) {
	return r.queryDevices(ctx,
		`SELECT `+deviceColumns+` FROM devices
		 WHERE installation_id = ?
		    OR room_id IN (SELECT id FROM rooms WHERE installation_id = ?)
		 ORDER BY name`,
		installationID, installationID)
}

// ListByInstallations returns devices attached to any of the given
// installations. An empty input returns an empty slice.
func (r *SQLiteRepository) ListByInstallations(ctx context.Context, installationIDs []string) ([]Device, error) {
	if len(installationIDs) == 0 {
		return []Device{}, nil
	}

	placeholders := strings.Repeat("?,", len(installationIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(installationIDs)*2)
	for _, id := range installationIDs {
		args = append(args, id)
	}
	for _, id := range installationIDs {
		args = append(args, id)
	}

	return r.queryDevices(ctx,
		`SELECT `+deviceColumns+` FROM devices
		 WHERE installation_id IN (`+placeholders+`)
		    OR room_id IN (SELECT id FROM rooms WHERE installation_id IN (`+placeholders+`))
		 ORDER BY name`,
		args...)
}

// Update modifies a device's fields, including room and installation
// placement.
func (r *SQLiteRepository) Update(ctx context.Context, dev *Device) error {
	if dev.Name == "" {
		return ErrNameRequired
	}
	if !IsValidDeviceType(dev.DeviceType) {
		return ErrInvalidDeviceType
	}

	now := time.Now().UTC().Truncate(time.Second)
	dev.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET name = ?, zone = ?, type = ?, device_type = ?,
			status = ?, value = ?, connected = ?, port_server = ?,
			room_id = ?, installation_id = ?, updated_at = ?
		 WHERE id = ?`,
		dev.Name, dev.Zone, dev.Type, dev.DeviceType, dev.Status,
		nullFloat(dev.Value), boolToInt(dev.Connected), dev.PortServer,
		nullString(dev.RoomID), nullString(dev.InstallationID),
		now.Format(time.RFC3339), dev.ID)
	if err != nil {
		return fmt.Errorf("updating device %s: %w", dev.ID, err)
	}

	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// Delete removes a device. History rows are kept for audit.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device %s: %w", id, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		dev, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *dev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*Device, error) {
	var dev Device
	var value sql.NullFloat64
	var connected int
	var roomID, installationID sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&dev.ID, &dev.Name, &dev.Zone, &dev.Type, &dev.DeviceType,
		&dev.Status, &value, &connected, &dev.PortServer, &roomID,
		&installationID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}

	if value.Valid {
		v := value.Float64
		dev.Value = &v
	}
	dev.Connected = connected != 0
	if roomID.Valid {
		dev.RoomID = &roomID.String
	}
	if installationID.Valid {
		dev.InstallationID = &installationID.String
	}
	dev.CreatedAt = parseTime(createdAt)
	dev.UpdatedAt = parseTime(updatedAt)
	return &dev, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

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
