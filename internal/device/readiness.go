package device

import (
	"context"
	"fmt"
	"time"
)

// Connector starts a transport-level connection to a node.
//
// Connect must not block on the radio: outcomes are reported later as
// Connected/ConnectFailed/ChannelReady/NegotiationFailed events. It returns an
// error only when the attempt could not be started at all, such as when the
// adapter is unavailable.
type Connector interface {
	Connect(id string) error
}

// Clock abstracts time so readiness polling can be driven by a fake clock.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// After returns time.After(d).
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Readiness drives nodes from discovered to ready on demand.
//
// Thread Safety:
//   - All methods are safe for concurrent use. State changes are posted to
//     the Sink; the registry is only read here.
type Readiness struct {
	registry  *Registry
	sink      Sink
	connector Connector
	clock     Clock
	logger    Logger
}

// NewReadiness creates a readiness controller.
//
// Parameters:
//   - registry: Source of current device status
//   - sink: Where connect-requested and connect-failed events are posted (usually the Loop)
//   - connector: The transport
func NewReadiness(registry *Registry, sink Sink, connector Connector) *Readiness {
	return &Readiness{
		registry:  registry,
		sink:      sink,
		connector: connector,
		clock:     SystemClock{},
		logger:    noopLogger{},
	}
}

// SetClock replaces the wall clock.
func (r *Readiness) SetClock(c Clock) {
	r.clock = c
}

// SetLogger sets the logger for the controller.
func (r *Readiness) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// Connect initiates a connection to id unless one is already in progress or
// the node is already ready. A connected node is only reconnected after its
// channel negotiation failed.
//
// Returns ErrDeviceNotFound for an undiscovered id. Transport failures are
// not returned: they move the device to StatusFailed.
func (r *Readiness) Connect(id string) error {
	d, ok := r.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	switch d.Status {
	case StatusConnecting:
		r.logger.Debug("connect already in progress", "device_id", id)
		return nil
	case StatusConnected:
		// Without LastError the channel is still being negotiated.
		if d.LastError == "" {
			r.logger.Debug("channel negotiation in progress", "device_id", id)
			return nil
		}
	case StatusReady:
		return nil
	}

	r.logger.Info("connecting", "device_id", id, "name", d.Name, "status", d.Status)
	r.sink.Post(ConnectRequested(id))

	if err := r.connector.Connect(id); err != nil {
		r.logger.Warn("connect not started", "device_id", id, "error", err)
		r.sink.Post(ConnectFailed(id, err))
	}
	return nil
}

// EnsureReady waits for id to reach StatusReady, connecting it first if needed.
//
// Status is checked immediately and then every poll. The last wait is cut
// short so the final check happens at the deadline, never after it. Each
// wait is a timer, so the event loop keeps running.
//
// Returns:
//   - bool: true if the device became ready in time; false on timeout,
//     unknown device, or cancelled ctx
func (r *Readiness) EnsureReady(ctx context.Context, id string, timeout, poll time.Duration) bool {
	d, ok := r.registry.Get(id)
	if !ok {
		r.logger.Warn("ensure ready: device not found", "device_id", id)
		return false
	}

	if !d.Ready() {
		_ = r.Connect(id)
	}

	deadline := r.clock.Now().Add(timeout)
	for {
		if cur, ok := r.registry.Get(id); ok && cur.Ready() {
			return true
		}
		if !r.clock.Now().Before(deadline) {
			r.logger.Warn("device not ready before timeout",
				"device_id", id,
				"name", d.Name,
				"status", r.registry.Status(id),
				"timeout", timeout,
			)
			return false
		}

		wait := poll
		if remaining := deadline.Sub(r.clock.Now()); remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-r.clock.After(wait):
		}
	}
}
