package installation

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the installation schema
// applied. The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "installation-test-*.db")
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
		CREATE TABLE installations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			cluster TEXT NOT NULL,
			user_id TEXT NOT NULL,
			route TEXT NOT NULL DEFAULT '',
			box_id TEXT NOT NULL DEFAULT '',
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0,
			parent TEXT NOT NULL DEFAULT 'ROOT',
			is_cluster INTEGER NOT NULL DEFAULT 1,
			status TEXT NOT NULL DEFAULT 'offline',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE INDEX idx_installations_user ON installations(user_id);

		CREATE TABLE rooms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			installation_id TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE INDEX idx_rooms_installation ON rooms(installation_id);

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

		CREATE TABLE user_installation_access (
			user_id TEXT NOT NULL,
			installation_id TEXT NOT NULL,
			created_by TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			PRIMARY KEY (user_id, installation_id)
		) STRICT;

		CREATE INDEX idx_user_installation_access_installation
			ON user_installation_access(installation_id);
	`
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("applying schema: %v", err)
	}

	return db
}

// seedInstallation creates an installation owned by the given user.
func seedInstallation(t *testing.T, repo *SQLiteRepository, name, userID string) *Installation {
	t.Helper()

	ins := &Installation{Name: name, UserID: userID}
	if err := repo.Create(context.Background(), ins); err != nil {
		t.Fatalf("creating installation %s: %v", name, err)
	}
	return ins
}

// seedRoom creates a room inside the given installation.
func seedRoom(t *testing.T, repo *SQLiteRoomRepository, name, installationID string) *Room {
	t.Helper()

	room := &Room{Name: name, InstallationID: installationID}
	if err := repo.Create(context.Background(), room); err != nil {
		t.Fatalf("creating room %s: %v", name, err)
	}
	return room
}
