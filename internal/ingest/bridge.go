package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eyamastour/backend-BrightMind/internal/device"
	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/logging"
	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/mqtt"
)

// handleTimeout bounds the database work done per incoming message.
const handleTimeout = 10 * time.Second

// valuePayload is the expected JSON body of a device value report.
type valuePayload struct {
	Value *float64 `json:"value"`
}

// Bridge subscribes to device value topics and forwards readings to the
// device service.
type Bridge struct {
	svc *device.Service
	log *logging.Logger
}

// Attach creates a bridge and subscribes it on the given client.
func Attach(client *mqtt.Client, svc *device.Service, log *logging.Logger) (*Bridge, error) {
	b := &Bridge{svc: svc, log: log}
	if err := client.Subscribe(mqtt.TopicDeviceValues, b.handleMessage); err != nil {
		return nil, fmt.Errorf("subscribing to device values: %w", err)
	}
	return b, nil
}

// handleMessage processes one value report. Unknown devices and malformed
// payloads are logged and dropped; they must not break the subscription.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	deviceID := mqtt.ParseDeviceValueTopic(topic)
	if deviceID == "" {
		return fmt.Errorf("unexpected topic %q", topic)
	}

	var body valuePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("decoding value payload for %s: %w", deviceID, err)
	}
	if body.Value == nil {
		return fmt.Errorf("value payload for %s missing value field", deviceID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if _, err := b.svc.SetValue(ctx, deviceID, *body.Value); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			b.log.Warn("value report for unknown device", "device_id", deviceID)
			return nil
		}
		return fmt.Errorf("storing value for %s: %w", deviceID, err)
	}

	b.log.Debug("ingested device value", "device_id", deviceID, "value", *body.Value)
	return nil
}
