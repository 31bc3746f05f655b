// Package database manages the SQLite connection for the BrightMind backend.
//
// It handles connection setup (WAL mode, busy timeout, foreign keys),
// embedded schema migrations, and health checks. Repositories in other
// packages receive the underlying *sql.DB.
package database
