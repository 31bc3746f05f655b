package device

import "time"

// Device type values. Actuators accept commands, sensors only report.
const (
	TypeActuator = "actuator"
	TypeSensor   = "sensor"
)

// IsValidDeviceType reports whether t is a recognised device type.
func IsValidDeviceType(t string) bool {
	return t == TypeActuator || t == TypeSensor
}

// Device represents a single piece of equipment.
//
// RoomID and InstallationID are both optional. A device created without
// either is visible only to administrators until it is placed.
type Device struct {
	// ID is the unique device identifier (e.g. "dev-a1b2c3d4").
	ID string `json:"id"`

	// Name is the human-readable device name.
	Name string `json:"name"`

	// Zone is a free-form grouping label within the room.
	Zone string `json:"zone,omitempty"`

	// Type is the protocol or product family (e.g. "zigbee-dimmer").
	Type string `json:"type,omitempty"`

	// DeviceType is either "actuator" or "sensor".
	DeviceType string `json:"device_type"`

	// Status is a free-form operational status string.
	Status string `json:"status,omitempty"`

	// Value is the current numeric reading or setpoint. Nil means the
	// device has never reported.
	Value *float64 `json:"value,omitempty"`

	// Connected reports whether the device is currently reachable.
	Connected bool `json:"connected"`

	// PortServer identifies the gateway the device is wired through.
	PortServer string `json:"port_server,omitempty"`

	// RoomID is the containing room, if any.
	RoomID *string `json:"room_id,omitempty"`

	// InstallationID is the containing installation, if any. A device in
	// a room normally carries the room's installation here as well.
	InstallationID *string `json:"installation_id,omitempty"`

	// CreatedAt is when the device was registered (UTC).
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the device was last modified (UTC).
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryEntry is one recorded device value.
//
// The device name and type are denormalised into each row so history stays
// readable after a device is renamed or deleted.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	DeviceType string    `json:"device_type"`
	Value      float64   `json:"value"`
	CreatedAt  time.Time `json:"created_at"`
}
