package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/device"
)

// CentralConfig holds scan settings.
type CentralConfig struct {
	Identity Identity

	// RequireService drops advertisements that do not list the light service.
	RequireService bool

	// ScanWindow and ScanPause alternate while scanning is on.
	ScanWindow time.Duration
	ScanPause  time.Duration
}

// Central is the coordinator's side of the node links. It scans, connects
// and negotiates, and reports every outcome to a device.Sink as an event.
// It never touches the registry itself.
//
// Thread Safety: all methods are safe for concurrent use. Radio callbacks
// run on the adapter's goroutines and only post events.
type Central struct {
	adapter *bluetooth.Adapter
	sink    device.Sink
	cfg     CentralConfig
	logger  Logger

	mu        sync.Mutex
	enabled   bool
	addresses map[string]bluetooth.Address
	links     map[string]bluetooth.Device
	stopScan  context.CancelFunc
	scanDone  chan struct{}
}

// NewCentral creates a central on adapter (usually bluetooth.DefaultAdapter).
func NewCentral(adapter *bluetooth.Adapter, sink device.Sink, cfg CentralConfig) *Central {
	return &Central{
		adapter:   adapter,
		sink:      sink,
		cfg:       cfg,
		logger:    noopLogger{},
		addresses: make(map[string]bluetooth.Address),
		links:     make(map[string]bluetooth.Device),
	}
}

// SetLogger sets the logger for the central.
func (c *Central) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// Enable powers up the adapter and installs the disconnect handler.
//
// Returns ErrUnavailable (wrapping the stack's error) if the radio cannot be
// used; the coordinator keeps running and every scan or connect is then a
// logged no-op.
func (c *Central) Enable() error {
	if c.adapter == nil {
		return ErrUnavailable
	}
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.adapter.SetConnectHandler(c.onConnectChange)

	c.mu.Lock()
	c.enabled = true
	c.mu.Unlock()

	c.logger.Info("bluetooth adapter enabled")
	return nil
}

// Enabled reports whether Enable succeeded.
func (c *Central) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// StartScan resets the registry and scans in windows until StopScan or ctx
// ends. Calling it while a scan runs is a no-op.
func (c *Central) StartScan(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		c.logger.Warn("scan ignored: adapter unavailable")
		return ErrUnavailable
	}
	if c.stopScan != nil {
		return nil
	}

	c.addresses = make(map[string]bluetooth.Address)
	c.sink.Post(device.Reset())

	ctx, cancel := context.WithCancel(ctx)
	c.stopScan = cancel
	c.scanDone = make(chan struct{})
	go c.scanLoop(ctx, c.scanDone)

	c.logger.Info("scan started", "window", c.cfg.ScanWindow, "pause", c.cfg.ScanPause)
	return nil
}

// StopScan ends the scan cycle and waits for the current window to close.
func (c *Central) StopScan() {
	c.mu.Lock()
	cancel, done := c.stopScan, c.scanDone
	c.stopScan, c.scanDone = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.logger.Info("scan stopped")
}

// Scanning reports whether a scan cycle is running.
func (c *Central) Scanning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopScan != nil
}

func (c *Central) scanLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if err := c.scanWindow(ctx); err != nil {
			c.logger.Error("scan window failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ScanPause):
		}
	}
}

// scanWindow runs one adapter scan for at most ScanWindow. Adapter.Scan
// blocks until StopScan, so it runs on its own goroutine.
func (c *Central) scanWindow(ctx context.Context) error {
	result := make(chan error, 1)
	go func() { result <- c.adapter.Scan(c.onScanResult) }()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
	case <-time.After(c.cfg.ScanWindow):
	}

	if err := c.adapter.StopScan(); err != nil {
		c.logger.Debug("stop scan", "error", err)
	}
	return <-result
}

func (c *Central) onScanResult(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
	if !acceptAdvertisement(c.cfg.RequireService, r.HasServiceUUID(c.cfg.Identity.Service)) {
		return
	}

	id := r.Address.String()
	c.mu.Lock()
	_, seen := c.addresses[id]
	c.addresses[id] = r.Address
	c.mu.Unlock()

	if !seen {
		c.logger.Info("node discovered", "device_id", id, "name", r.LocalName(), "rssi", r.RSSI)
	}
	c.sink.Post(device.Discovered(id, strings.TrimSpace(r.LocalName()), r.RSSI))
}

// acceptAdvertisement is the scan filter.
func acceptAdvertisement(requireService, hasService bool) bool {
	return hasService || !requireService
}

// Connect starts connecting to id in the background. The outcome arrives as
// Connected then ChannelReady, or as ConnectFailed or NegotiationFailed.
//
// It implements device.Connector.
func (c *Central) Connect(id string) error {
	c.mu.Lock()
	enabled := c.enabled
	addr, ok := c.addresses[id]
	c.mu.Unlock()

	if !enabled {
		return ErrUnavailable
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAddress, id)
	}

	go c.connect(id, addr)
	return nil
}

func (c *Central) connect(id string, addr bluetooth.Address) {
	dev, err := c.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		c.logger.Warn("connect failed", "device_id", id, "error", err)
		c.sink.Post(device.ConnectFailed(id, err))
		return
	}

	c.mu.Lock()
	c.links[id] = dev
	c.mu.Unlock()
	c.sink.Post(device.Connected(id))

	char, err := findCharacteristic(dev, c.cfg.Identity)
	if err != nil {
		c.logger.Warn("negotiation failed", "device_id", id, "error", err)
		c.sink.Post(device.NegotiationFailed(id, err))
		return
	}

	c.logger.Info("command channel ready", "device_id", id)
	c.sink.Post(device.ChannelReady(id, gattChannel{char: char}))
}

func (c *Central) onConnectChange(dev bluetooth.Device, connected bool) {
	if connected {
		return
	}
	id := dev.Address.String()

	c.mu.Lock()
	_, known := c.links[id]
	delete(c.links, id)
	c.mu.Unlock()

	if known {
		c.logger.Info("node disconnected", "device_id", id)
		c.sink.Post(device.Disconnected(id, nil))
	}
}

// Close stops scanning and drops every link.
func (c *Central) Close() {
	c.StopScan()

	c.mu.Lock()
	links := c.links
	c.links = make(map[string]bluetooth.Device)
	c.mu.Unlock()

	for id, dev := range links {
		if err := dev.Disconnect(); err != nil {
			c.logger.Debug("disconnect", "device_id", id, "error", err)
		}
	}
}
