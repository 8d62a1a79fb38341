package session

import "errors"

// Domain errors for the session package.
var (
	// ErrInvalidConfig is returned by New when credentials are missing.
	ErrInvalidConfig = errors.New("session: invalid config")

	// ErrNoDevices is returned by Begin when no device is registered.
	ErrNoDevices = errors.New("session: no devices registered")

	// ErrAlreadyStarted is returned by Begin while a connection is in progress or up.
	ErrAlreadyStarted = errors.New("session: already started")

	// ErrNetworkJoin is returned by Begin when the network is not up within JoinTimeout.
	ErrNetworkJoin = errors.New("session: network join failed")

	// ErrConnect is returned by Begin when the transport rejects the connection request.
	ErrConnect = errors.New("session: connect failed")

	// ErrRegistryFull is returned when MaxDevices devices are already registered.
	ErrRegistryFull = errors.New("session: device registry full")

	// ErrDuplicateDevice is returned when a device ID is already registered.
	ErrDuplicateDevice = errors.New("session: duplicate device")

	// ErrInvalidDeviceID is returned for nil devices and malformed IDs.
	ErrInvalidDeviceID = errors.New("session: invalid device id")

	// ErrRegistryFrozen is returned when the registry is modified between Begin and Stop.
	ErrRegistryFrozen = errors.New("session: device registry frozen")

	// ErrDeviceNotFound is returned by RemoveDevice for unknown IDs.
	ErrDeviceNotFound = errors.New("session: device not found")

	// ErrQueueFull is returned when the TX queue has no free slot.
	ErrQueueFull = errors.New("session: tx queue full")

	// ErrMessageTooLarge is returned when a sealed message exceeds the queue slot size.
	ErrMessageTooLarge = errors.New("session: message too large")
)
