package ble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

var errDisconnected = errors.New("ble: trigger source disconnected")

// ListenerConfig configures the external controller side of the trigger.
type ListenerConfig struct {
	Identity Identity

	// Name is the advertised name of the coordinator to follow.
	Name string

	// RetryInterval is the wait after a failed scan, connect or a dropped link.
	RetryInterval time.Duration

	// ScanTimeout bounds each search for Name.
	ScanTimeout time.Duration
}

// Listener finds the coordinator by name, subscribes to its trigger
// characteristic and hands every notification to a callback. It reconnects
// forever until its context ends.
type Listener struct {
	adapter *bluetooth.Adapter
	cfg     ListenerConfig
	logger  Logger

	mu   sync.Mutex
	lost chan struct{}
	addr string
}

// NewListener creates a listener. The adapter must already be enabled.
func NewListener(adapter *bluetooth.Adapter, cfg ListenerConfig) *Listener {
	return &Listener{adapter: adapter, cfg: cfg, logger: noopLogger{}}
}

// SetLogger sets the logger for the listener.
func (l *Listener) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	l.logger = logger
}

// Run blocks until ctx ends, calling onNotify for each notification.
func (l *Listener) Run(ctx context.Context, onNotify func(data []byte)) error {
	l.adapter.SetConnectHandler(l.onConnectChange)

	for {
		err := l.session(ctx, onNotify)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("trigger link down, retrying", "error", err, "retry_in", l.cfg.RetryInterval)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.cfg.RetryInterval):
		}
	}
}

// session runs one find-connect-subscribe cycle and returns when the link
// drops.
func (l *Listener) session(ctx context.Context, onNotify func([]byte)) error {
	l.logger.Info("scanning for trigger source", "name", l.cfg.Name)
	addr, err := l.find(ctx)
	if err != nil {
		return err
	}

	// Armed before connecting so a drop during Connect is not missed.
	lost := l.arm(addr.String())
	defer l.disarm()

	dev, err := l.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer dev.Disconnect() //nolint:errcheck // link may already be gone

	char, err := findCharacteristic(dev, l.cfg.Identity)
	if err != nil {
		return err
	}
	if err := char.EnableNotifications(func(buf []byte) {
		onNotify(append([]byte(nil), buf...))
	}); err != nil {
		return fmt.Errorf("enabling notifications: %w", err)
	}
	l.logger.Info("subscribed to trigger", "address", addr.String())

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-lost:
		return errDisconnected
	}
}

// find scans for the configured name until ScanTimeout.
func (l *Listener) find(ctx context.Context) (bluetooth.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.ScanTimeout)
	defer cancel()

	found := make(chan bluetooth.Address, 1)
	result := make(chan error, 1)
	go func() {
		result <- l.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
			if !matchesName(r.LocalName(), l.cfg.Name) {
				return
			}
			select {
			case found <- r.Address:
				a.StopScan() //nolint:errcheck // scan ends either way
			default:
			}
		})
	}()

	select {
	case addr := <-found:
		<-result
		return addr, nil
	case err := <-result:
		if err != nil {
			return bluetooth.Address{}, fmt.Errorf("scanning: %w", err)
		}
		return bluetooth.Address{}, fmt.Errorf("scan ended without %q", l.cfg.Name)
	case <-ctx.Done():
		l.adapter.StopScan() //nolint:errcheck // scan ends either way
		<-result
		select {
		case addr := <-found:
			return addr, nil
		default:
		}
		return bluetooth.Address{}, fmt.Errorf("%q not found", l.cfg.Name)
	}
}

func (l *Listener) onConnectChange(dev bluetooth.Device, connected bool) {
	if connected {
		return
	}
	l.linkLost(dev.Address.String())
}

// arm starts watching addr and returns a channel closed when it disconnects.
func (l *Listener) arm(addr string) <-chan struct{} {
	lost := make(chan struct{})
	l.mu.Lock()
	l.lost, l.addr = lost, addr
	l.mu.Unlock()
	return lost
}

func (l *Listener) disarm() {
	l.mu.Lock()
	l.lost, l.addr = nil, ""
	l.mu.Unlock()
}

func (l *Listener) linkLost(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lost != nil && addr == l.addr {
		close(l.lost)
		l.lost = nil
	}
}

// matchesName compares an advertised name with the wanted one, ignoring
// surrounding whitespace.
func matchesName(advertised, want string) bool {
	return want != "" && strings.TrimSpace(advertised) == want
}
