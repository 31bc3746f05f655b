package ingest

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eyamastour/backend-BrightMind/internal/device"
	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/logging"
)

func testBridge(t *testing.T) (*Bridge, *device.Service, *sql.DB) {
	t.Helper()

	f, err := os.CreateTemp("", "ingest-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
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

		CREATE TABLE device_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			device_name TEXT NOT NULL DEFAULT '',
			device_type TEXT NOT NULL DEFAULT '',
			value REAL NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("applying schema: %v", err)
	}

	svc := device.NewService(
		device.NewRepository(db),
		device.NewHistoryRepository(db),
		nil, nil, logging.Default())
	return &Bridge{svc: svc, log: logging.Default()}, svc, db
}

func TestBridge_HandleMessage(t *testing.T) {
	bridge, svc, db := testBridge(t)

	dev := &device.Device{Name: "Thermometer"}
	if err := svc.Create(context.Background(), dev); err != nil {
		t.Fatalf("creating device: %v", err)
	}

	topic := "brightmind/device/" + dev.ID + "/value"
	if err := bridge.handleMessage(topic, []byte(`{"value": 21.5}`)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}

	var value float64
	if err := db.QueryRow("SELECT value FROM devices WHERE id = ?", dev.ID).Scan(&value); err != nil {
		t.Fatalf("reading device: %v", err)
	}
	if value != 21.5 {
		t.Errorf("value = %v, want 21.5", value)
	}

	var historyCount int
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM device_history WHERE device_id = ?", dev.ID).Scan(&historyCount); err != nil {
		t.Fatalf("counting history: %v", err)
	}
	if historyCount != 1 {
		t.Errorf("history entries = %d, want 1", historyCount)
	}
}

func TestBridge_HandleMessage_UnknownDeviceDropped(t *testing.T) {
	bridge, _, _ := testBridge(t)

	// Unknown devices are logged, not treated as handler failures.
	err := bridge.handleMessage("brightmind/device/dev-nope/value", []byte(`{"value": 1}`))
	if err != nil {
		t.Errorf("unknown device should be dropped, got %v", err)
	}
}

func TestBridge_HandleMessage_BadPayload(t *testing.T) {
	bridge, _, _ := testBridge(t)

	err := bridge.handleMessage("brightmind/device/dev-x/value", []byte(`not json`))
	if err == nil || !strings.Contains(err.Error(), "decoding") {
		t.Errorf("got %v, want decode error", err)
	}

	err = bridge.handleMessage("brightmind/device/dev-x/value", []byte(`{}`))
	if err == nil || !strings.Contains(err.Error(), "missing value") {
		t.Errorf("got %v, want missing value error", err)
	}

	err = bridge.handleMessage("brightmind/system/status", []byte(`{"value": 1}`))
	if err == nil {
		t.Error("unexpected topic should error")
	}
}
