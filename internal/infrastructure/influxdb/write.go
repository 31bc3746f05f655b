package influxdb

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// measurementDeviceValue is the measurement name for mirrored history points.
const measurementDeviceValue = "device_value"

// RecordValue queues a device value point for batched writing.
//
// The signature matches the device service's Recorder interface. Writes on
// a closed client are silently dropped; the mirror must never make a
// device update fail.
func (c *Client) RecordValue(deviceID, deviceType string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := influxdb2.NewPoint(
		measurementDeviceValue,
		map[string]string{
			"device_id":   deviceID,
			"device_type": deviceType,
		},
		map[string]any{
			"value": value,
		},
		time.Now().UTC(),
	)
	c.writeAPI.WritePoint(point)
}
