package device

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the device schema applied.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "device-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schemaSQL := `
		CREATE TABLE rooms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			installation_id TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			zone TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT '',
			device_type TEXT NOT NULL DEFAULT 'sensor',
			status TEXT NOT NULL DEFAULT '',
			value REAL,
			connected INTEGER NOT NULL DEFAULT 0,
			port_server TEXT NOT NULL DEFAULT '',
			room_id TEXT,
			installation_id TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE INDEX idx_devices_room ON devices(room_id);
		CREATE INDEX idx_devices_installation ON devices(installation_id);

		CREATE TABLE device_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			device_name TEXT NOT NULL DEFAULT '',
			device_type TEXT NOT NULL DEFAULT '',
			value REAL NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE INDEX idx_device_history_device_time
			ON device_history(device_id, created_at);
	`
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("applying schema: %v", err)
	}

	return db
}

// seedDevice creates a device with the given placement.
func seedDevice(t *testing.T, repo *SQLiteRepository, name string, roomID, installationID *string) *Device {
	t.Helper()

	dev := &Device{
		Name:           name,
		DeviceType:     TypeSensor,
		RoomID:         roomID,
		InstallationID: installationID,
	}
	if err := repo.Create(context.Background(), dev); err != nil {
		t.Fatalf("creating device %s: %v", name, err)
	}
	return dev
}

// seedRoomRow inserts a bare room row for placement queries.
func seedRoomRow(t *testing.T, db *sql.DB, id, installationID string) {
	t.Helper()

	if _, err := db.Exec(
		"INSERT INTO rooms (id, name, installation_id) VALUES (?, ?, ?)",
		id, id, installationID); err != nil {
		t.Fatalf("seeding room %s: %v", id, err)
	}
}

func strPtr(s string) *string { return &s }

func floatPtr(v float64) *float64 { return &v }
