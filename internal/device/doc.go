// Package device manages the device inventory and its value history.
//
// Devices are the leaves of the installation hierarchy. A device may sit
// inside a room, be attached directly to an installation, or float free of
// both while it awaits commissioning. Rooms and installations reference
// devices only through the device's own room_id and installation_id columns;
// there is no membership table to keep in sync.
//
// Every change to a device's numeric value appends a row to the history
// table, tagged with the device's name and type at the time of the change.
// Updates that carry the same value do not produce a row. The Service wires
// the repositories together and, when configured, mirrors history points to
// InfluxDB and pushes live updates to WebSocket subscribers.
package device
