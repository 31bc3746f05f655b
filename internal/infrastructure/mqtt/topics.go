package mqtt

import "strings"

// Topic prefixes for the BrightMind namespace.
const (
	topicPrefix = "brightmind"

	// TopicSystemStatus carries the retained online/offline status payload.
	TopicSystemStatus = topicPrefix + "/system/status"

	// TopicDeviceValues matches all device value reports.
	TopicDeviceValues = topicPrefix + "/device/+/value"
)

// DeviceValueTopic returns the value topic for a specific device.
func DeviceValueTopic(deviceID string) string {
	return topicPrefix + "/device/" + deviceID + "/value"
}

// ParseDeviceValueTopic extracts the device ID from a value topic.
// Returns "" when the topic does not match the expected shape.
func ParseDeviceValueTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != topicPrefix || parts[1] != "device" || parts[3] != "value" {
		return ""
	}
	if parts[2] == "" || parts[2] == "+" || parts[2] == "#" {
		return ""
	}
	return parts[2]
}
