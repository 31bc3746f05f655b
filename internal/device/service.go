package device

import (
	"context"
	"fmt"

	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/logging"
)

// Recorder mirrors history points to an external time-series store.
// Implementations must not block; failures are logged, not surfaced.
type Recorder interface {
	RecordValue(deviceID, deviceType string, value float64)
}

// Broadcaster pushes live device updates to connected clients.
type Broadcaster interface {
	BroadcastDevice(dev *Device)
}

// Service coordinates device mutations so that every path, REST or MQTT,
// applies the same history and notification rules.
type Service struct {
	repo        Repository
	history     HistoryRepository
	recorder    Recorder
	broadcaster Broadcaster
	log         *logging.Logger
}

// NewService creates a device service. recorder and broadcaster may be nil
// when the corresponding integrations are disabled.
func NewService(repo Repository, history HistoryRepository, recorder Recorder, broadcaster Broadcaster, log *logging.Logger) *Service {
	return &Service{
		repo:        repo,
		history:     history,
		recorder:    recorder,
		broadcaster: broadcaster,
		log:         log,
	}
}

// SetBroadcaster installs the live-update sink. Call before serving traffic;
// the service is wired up before the transport that broadcasts exists.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Create registers a device. If it arrives with an initial value, that
// value becomes the first history entry.
func (s *Service) Create(ctx context.Context, dev *Device) error {
	if err := s.repo.Create(ctx, dev); err != nil {
		return err
	}
	if dev.Value != nil {
		s.appendHistory(ctx, dev, *dev.Value)
	}
	s.notify(dev)
	return nil
}

// Update applies a full device update. A history entry is appended only
// when the value actually changes; writing the same value again is not a
// change. The entry keeps the name and type the device had before the
// update, so a rename in the same request does not rewrite the past.
func (s *Service) Update(ctx context.Context, dev *Device) error {
	current, err := s.repo.GetByID(ctx, dev.ID)
	if err != nil {
		return err
	}

	if err := s.repo.Update(ctx, dev); err != nil {
		return err
	}

	if dev.Value != nil && valueChanged(current.Value, *dev.Value) {
		s.appendHistory(ctx, current, *dev.Value)
	}
	s.notify(dev)
	return nil
}

// SetValue updates only a device's value. This is the ingest path used by
// the MQTT bridge.
func (s *Service) SetValue(ctx context.Context, deviceID string, value float64) (*Device, error) {
	dev, err := s.repo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if !valueChanged(dev.Value, value) {
		return dev, nil
	}

	dev.Value = &value
	if err := s.repo.Update(ctx, dev); err != nil {
		return nil, fmt.Errorf("storing value for device %s: %w", deviceID, err)
	}

	s.appendHistory(ctx, dev, value)
	s.notify(dev)
	return dev, nil
}

// Delete removes a device. Its history rows are retained.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) appendHistory(ctx context.Context, dev *Device, value float64) {
	entry := &HistoryEntry{
		DeviceID:   dev.ID,
		DeviceName: dev.Name,
		DeviceType: dev.DeviceType,
		Value:      value,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.log.Error("recording device history", "device_id", dev.ID, "error", err)
		return
	}
	if s.recorder != nil {
		s.recorder.RecordValue(dev.ID, dev.DeviceType, value)
	}
}

func (s *Service) notify(dev *Device) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastDevice(dev)
	}
}

// valueChanged reports whether writing newValue would change the stored
// value. A device that has never reported always counts as changed.
func valueChanged(current *float64, newValue float64) bool {
	return current == nil || *current != newValue
}
