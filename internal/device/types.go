package device

import (
	"fmt"
	"time"
)

// Status is the connection state of a node.
//
//	discovered → connecting → connected → ready
//	connecting → failed
//	(any)      → disconnected
type Status string

// Connection states.
const (
	StatusDiscovered   Status = "discovered"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReady        Status = "ready"
	StatusFailed       Status = "failed"
	StatusDisconnected Status = "disconnected"
)

// AllStatuses lists every connection state in lifecycle order.
var AllStatuses = []Status{
	StatusDiscovered,
	StatusConnecting,
	StatusConnected,
	StatusReady,
	StatusFailed,
	StatusDisconnected,
}

// String implements fmt.Stringer.
func (s Status) String() string { return string(s) }

// CanConnect reports whether a connect may be initiated from s.
// StatusConnected is included so a node stuck after a failed channel
// negotiation can be retried; Readiness.Connect only does so once
// LastError records that failure.
func (s Status) CanConnect() bool {
	switch s {
	case StatusDiscovered, StatusDisconnected, StatusFailed, StatusConnected:
		return true
	default:
		return false
	}
}

// WriteMode selects how a frame is written to a node's command channel.
type WriteMode string

// Write modes.
const (
	// WriteWithoutResponse is fire-and-forget at the transport layer.
	WriteWithoutResponse WriteMode = "without_response"

	// WriteWithResponse waits for the node to acknowledge the write.
	WriteWithResponse WriteMode = "with_response"
)

// Channel is a negotiated command channel on a node.
// The BLE characteristic handle satisfies it directly.
type Channel interface {
	Write(p []byte) (n int, err error)
	WriteWithoutResponse(p []byte) (n int, err error)
}

// Device is one LED node as seen by the coordinator.
type Device struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       Status    `json:"status"`
	RSSI         int16     `json:"rssi"`
	LastError    string    `json:"last_error,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Channel is set only while Status is StatusReady.
	Channel Channel `json:"-"`
}

// Ready reports whether the node can accept writes.
func (d Device) Ready() bool {
	return d.Status == StatusReady && d.Channel != nil
}

// Send writes p to the node's command channel using mode.
func (d Device) Send(mode WriteMode, p []byte) error {
	if d.Channel == nil {
		return fmt.Errorf("%w: %s", ErrNoChannel, d.ID)
	}

	var err error
	switch mode {
	case WriteWithResponse:
		_, err = d.Channel.Write(p)
	default:
		_, err = d.Channel.WriteWithoutResponse(p)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, d.ID, err)
	}
	return nil
}

// Change describes one status transition. It is delivered to subscribers
// after the registry has been updated.
type Change struct {
	DeviceID string    `json:"device_id"`
	Name     string    `json:"name"`
	From     Status    `json:"from"`
	To       Status    `json:"to"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}
