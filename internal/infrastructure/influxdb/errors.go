package influxdb

import "errors"

var (
	// ErrDisabled indicates the mirror is turned off in configuration.
	ErrDisabled = errors.New("influxdb is disabled")

	// ErrConnectionFailed indicates the server could not be reached.
	ErrConnectionFailed = errors.New("influxdb connection failed")

	// ErrNotConnected indicates a write was attempted on a closed client.
	ErrNotConnected = errors.New("influxdb client not connected")
)
