package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrRateLimited) {
//	    // event dropped, try again later
//	}
var (
	// ErrInvalidID is returned when a device ID is not exactly IDLength characters.
	ErrInvalidID = errors.New("device: invalid id")

	// ErrInvalidType is returned when a device type is not recognised.
	ErrInvalidType = errors.New("device: invalid type")

	// ErrInvalidName is returned when a device name is too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrNotBound is returned when an event is sent before the device was
	// added to a session.
	ErrNotBound = errors.New("device: not bound to a session")

	// ErrRateLimited is returned when an event is dropped by the capability's limiter.
	ErrRateLimited = errors.New("device: event rate limited")

	// ErrUnsupportedAction is returned when a request names an action the
	// device does not implement.
	ErrUnsupportedAction = errors.New("device: unsupported action")
)
