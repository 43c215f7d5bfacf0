package device

import (
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the in-memory catalogue of discovered nodes.
//
// Devices are inserted on first discovery and kept in discovery order. They
// are never removed on disconnect, only by a Reset event.
//
// Mutation goes through Apply, which in a running coordinator is called
// only from the Loop goroutine. Readers on other goroutines (the route
// engine, the HTTP API) get copies under a read lock.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
	order   []string

	subMu   sync.Mutex
	subs    map[int]chan Change
	nextSub int

	now    func() time.Time
	logger Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		subs:    make(map[int]chan Change),
		now:     time.Now,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// Post applies ev immediately. It lets a Registry stand in for a Loop where
// everything already runs on one goroutine.
func (r *Registry) Post(ev Event) {
	r.Apply(ev)
}

// Apply runs one event through the state machine.
//
// Returns the resulting Change and true when the event affected a device's
// status or channel. Events that do not apply to the device's current state
// (a late connect success after a disconnect, for example) are logged and
// ignored.
func (r *Registry) Apply(ev Event) (Change, bool) {
	r.mu.Lock()
	change, ok := r.applyLocked(ev)
	r.mu.Unlock()

	if ok {
		r.logger.Debug("device status changed",
			"device_id", change.DeviceID,
			"name", change.Name,
			"from", change.From,
			"to", change.To,
		)
		r.publish(change)
	}
	return change, ok
}

func (r *Registry) applyLocked(ev Event) (Change, bool) {
	now := r.now()

	if ev.Kind == EventReset {
		r.devices = make(map[string]*Device)
		r.order = nil
		r.logger.Info("device registry reset")
		return Change{}, false
	}

	d, known := r.devices[ev.ID]

	if ev.Kind == EventDiscovered {
		if known {
			d.RSSI = ev.RSSI
			if d.Name == "" && ev.Name != "" {
				d.Name = ev.Name
			}
			return Change{}, false
		}
		d = &Device{
			ID:           ev.ID,
			Name:         ev.Name,
			Status:       StatusDiscovered,
			RSSI:         ev.RSSI,
			DiscoveredAt: now,
			UpdatedAt:    now,
		}
		r.devices[ev.ID] = d
		r.order = append(r.order, ev.ID)
		return Change{DeviceID: d.ID, Name: d.Name, To: StatusDiscovered, At: now}, true
	}

	if !known {
		r.logger.Warn("event for unknown device", "device_id", ev.ID, "event", ev.Kind)
		return Change{}, false
	}

	from := d.Status
	to, ok := nextStatus(from, ev.Kind)
	if !ok {
		r.logger.Debug("event ignored in current state",
			"device_id", ev.ID,
			"status", from,
			"event", ev.Kind,
		)
		return Change{}, false
	}

	switch ev.Kind {
	case EventChannelReady:
		d.Channel = ev.Channel
		d.LastError = ""
	case EventConnectRequested:
		d.Channel = nil
		d.LastError = ""
	case EventNegotiationFailed, EventDisconnected:
		d.Channel = nil
	}
	if ev.Err != nil {
		d.LastError = ev.Err.Error()
	}
	d.Status = to
	d.UpdatedAt = now

	return Change{
		DeviceID: d.ID,
		Name:     d.Name,
		From:     from,
		To:       to,
		Error:    errString(ev.Err),
		At:       now,
	}, true
}

// nextStatus is the transition table. A negotiation failure is a valid event
// that leaves the device at StatusConnected.
func nextStatus(from Status, kind EventKind) (Status, bool) {
	switch kind {
	case EventConnectRequested:
		if from.CanConnect() {
			return StatusConnecting, true
		}
	case EventConnected:
		if from == StatusConnecting {
			return StatusConnected, true
		}
	case EventConnectFailed:
		if from == StatusConnecting {
			return StatusFailed, true
		}
	case EventChannelReady:
		if from == StatusConnected {
			return StatusReady, true
		}
	case EventNegotiationFailed:
		if from == StatusConnected {
			return StatusConnected, true
		}
	case EventDisconnected:
		if from != StatusDisconnected {
			return StatusDisconnected, true
		}
	}
	return from, false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Get returns a copy of the device with the given ID.
func (r *Registry) Get(id string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// Status returns the current status of id, or "" if it is unknown.
func (r *Registry) Status(id string) Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.devices[id]; ok {
		return d.Status
	}
	return ""
}

// List returns copies of all devices in discovery order.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.devices[id])
	}
	return out
}

// ListByStatus returns copies of the devices currently in status s.
func (r *Registry) ListByStatus(s Status) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Device
	for _, id := range r.order {
		if d := r.devices[id]; d.Status == s {
			out = append(out, *d)
		}
	}
	return out
}

// Len returns the number of known devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// FindByName resolves a hop target to a device.
//
// Names are compared after Normalize. An exact match wins over a substring
// match; ties go to the earliest discovered device.
func (r *Registry) FindByName(name string) (Device, bool) {
	want := Normalize(name)
	if want == "" {
		return Device{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var partial *Device
	for _, id := range r.order {
		d := r.devices[id]
		got := Normalize(d.Name)
		if got == want {
			return *d, true
		}
		if partial == nil && got != "" && containsName(got, want) {
			partial = d
		}
	}
	if partial != nil {
		return *partial, true
	}
	return Device{}, false
}

// Subscribe registers for status changes.
//
// The returned channel receives every Change applied after the call. A
// subscriber that falls more than buffer changes behind loses changes rather
// than blocking the registry. Call the returned function to unsubscribe; it
// closes the channel.
func (r *Registry) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Change, buffer)

	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.subMu.Lock()
			delete(r.subs, id)
			r.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (r *Registry) publish(c Change) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	for _, ch := range r.subs {
		select {
		case ch <- c:
		default:
			r.logger.Warn("device change dropped for slow subscriber", "device_id", c.DeviceID)
		}
	}
}
