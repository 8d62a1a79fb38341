package session

import (
	"fmt"

	"github.com/nerrad567/sinric-link/internal/device"
)

// AddDevice registers d. Devices implementing device.Binder are bound to
// the session so they can send events.
func (s *Session) AddDevice(d device.Device) error {
	if d == nil {
		return fmt.Errorf("%w: nil device", ErrInvalidDeviceID)
	}
	id := d.ID()
	if err := device.ValidateID(id); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDeviceID, err)
	}

	s.mu.Lock()
	switch {
	case s.frozen:
		s.mu.Unlock()
		return ErrRegistryFrozen
	case len(s.devices) >= s.cfg.MaxDevices:
		s.mu.Unlock()
		return fmt.Errorf("%w: %d devices", ErrRegistryFull, s.cfg.MaxDevices)
	}
	for _, existing := range s.devices {
		if existing.ID() == id {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateDevice, id)
		}
	}
	s.devices = append(s.devices, d)
	s.mu.Unlock()

	if b, ok := d.(device.Binder); ok {
		b.Bind(s)
	}
	s.logger.Info("device added", "device_id", id, "device_type", string(d.Type()))
	return nil
}

// RemoveDevice unregisters the device with the given ID, keeping the
// remaining devices in registration order.
func (s *Session) RemoveDevice(id string) error {
	s.mu.Lock()
	if s.frozen {
		s.mu.Unlock()
		return ErrRegistryFrozen
	}
	idx := -1
	for i, d := range s.devices {
		if d.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	removed := s.devices[idx]
	copy(s.devices[idx:], s.devices[idx+1:])
	s.devices[len(s.devices)-1] = nil
	s.devices = s.devices[:len(s.devices)-1]
	s.mu.Unlock()

	if b, ok := removed.(device.Binder); ok {
		b.Bind(nil)
	}
	s.logger.Info("device removed", "device_id", id)
	return nil
}

// FindDevice returns the registered device with the given ID.
func (s *Session) FindDevice(id string) (device.Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.ID() == id {
			return d, true
		}
	}
	return nil, false
}

// Devices returns the registered devices in registration order.
func (s *Session) Devices() []device.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]device.Device(nil), s.devices...)
}
