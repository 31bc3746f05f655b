// Package mqtt wraps paho.mqtt.golang for the device value ingest bridge.
//
// The platform subscribes to per-device value topics so gateways can push
// sensor readings without going through the REST API. The wrapper adds
// connection state tracking, automatic re-subscription after reconnect,
// and panic recovery around message handlers. The bridge is optional and
// disabled by default.
//
// Topic layout:
//
//	brightmind/device/{deviceID}/value   incoming value reports (JSON)
//	brightmind/system/status             retained online/offline status
package mqtt
