package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID has never been discovered.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrNoChannel is returned when writing to a node without a negotiated channel.
	ErrNoChannel = errors.New("device: no command channel")

	// ErrWriteFailed is returned when the transport rejects a write.
	ErrWriteFailed = errors.New("device: write failed")

	// ErrNegotiationFailed marks a connected node whose command channel
	// could not be discovered.
	ErrNegotiationFailed = errors.New("device: channel negotiation failed")
)
