package trigger

import "errors"

// Errors a Sender reports. Only ErrBufferFull is retried.
var (
	// ErrBufferFull means the transmit queue could not take the value now.
	ErrBufferFull = errors.New("trigger: transmit buffer full")

	// ErrNotReady means the sender is not advertising or has no subscribers.
	ErrNotReady = errors.New("trigger: sender not ready")
)
