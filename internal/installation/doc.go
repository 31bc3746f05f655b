// Package installation manages the installation hierarchy: installations
// (sites, optionally nested under a parent or flagged as clusters) and the
// rooms inside them.
//
// Every installation is owned by the user that created it; the owner id is
// immutable. Hierarchy mutations that touch more than one record (moving a
// room, deleting a room or installation) run in a single SQLite transaction
// so parent/child references cannot diverge under concurrent requests.
// Deleting an installation intentionally does not cascade to its rooms and
// devices; they keep a dangling installation reference.
package installation
