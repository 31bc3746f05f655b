package device

import "errors"

// Sentinel errors for device operations.
var (
	// ErrDeviceNotFound indicates the requested device does not exist.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrNameRequired indicates a device was submitted without a name.
	ErrNameRequired = errors.New("device name is required")

	// ErrInvalidDeviceType indicates an unknown device type value.
	ErrInvalidDeviceType = errors.New("device type must be actuator or sensor")

	// ErrDeviceAlreadyInRoom indicates an attempt to attach a device that
	// already belongs to a room.
	ErrDeviceAlreadyInRoom = errors.New("device already assigned to a room")

	// ErrDeviceNotInRoom indicates a detach for a device the room does
	// not contain.
	ErrDeviceNotInRoom = errors.New("device is not in this room")
)
