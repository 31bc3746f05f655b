package mqtt

import "errors"

var (
	// ErrDisabled indicates the bridge is turned off in configuration.
	ErrDisabled = errors.New("mqtt is disabled")

	// ErrConnectionFailed indicates the broker could not be reached.
	ErrConnectionFailed = errors.New("mqtt connection failed")

	// ErrNotConnected indicates an operation on a disconnected client.
	ErrNotConnected = errors.New("mqtt client not connected")

	// ErrSubscribeFailed indicates the broker rejected a subscription.
	ErrSubscribeFailed = errors.New("mqtt subscribe failed")

	// ErrPublishFailed indicates a publish did not complete.
	ErrPublishFailed = errors.New("mqtt publish failed")
)
