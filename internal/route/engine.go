package route

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/device"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/payload"
)

// DeviceResolver is the interface the engine needs from the device registry.
type DeviceResolver interface {
	// FindByName resolves a hop target name to a device.
	FindByName(name string) (device.Device, bool)

	// Get returns the current state of a device.
	Get(id string) (device.Device, bool)

	// ListByStatus returns every device in the given status.
	ListByStatus(s device.Status) []device.Device
}

// ReadinessWaiter gates each hop on its device being ready.
type ReadinessWaiter interface {
	EnsureReady(ctx context.Context, id string, timeout, poll time.Duration) bool
}

// Metrics receives per-hop and per-execution measurements.
type Metrics interface {
	WriteHopMetric(routeName string, hop HopResult)
	WriteExecutionMetric(exec *Execution)
}

// WSHub is the interface for broadcasting execution events.
type WSHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// Logger defines the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetrics struct{}

func (noopMetrics) WriteHopMetric(string, HopResult) {}
func (noopMetrics) WriteExecutionMetric(*Execution)  {}

// Broadcast channels used by the engine.
const (
	ChannelRouteExecuted = "route.executed"
	ChannelBlinkAll      = "route.blink_all"
)

// maxExecutionTime is the hard limit for a single route execution. Four hops
// that each wait out the full readiness timeout finish well inside it.
const maxExecutionTime = 60 * time.Second

// EngineConfig holds the timing and colour settings of the engine.
type EngineConfig struct {
	HopDelay     time.Duration
	ReadyTimeout time.Duration
	PollInterval time.Duration
	Color        payload.Color
}

// Engine executes routes hop by hop.
//
// Each hop resolves its target by name, waits for readiness, encodes a chase
// frame with the current offset and writes it. A hop whose device is missing
// or not ready is skipped and the route continues.
//
// Thread Safety: Execute is safe for concurrent use. Two executions of the
// same route are serialized; different routes may interleave.
type Engine struct {
	table     *Table
	devices   DeviceResolver
	readiness ReadinessWaiter
	codec     payload.Codec
	repo      Repository
	hub       WSHub
	metrics   Metrics
	cfg       EngineConfig
	logger    Logger

	locks routeLocks
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewEngine creates a route engine.
//
// Parameters:
//   - table: Route definitions
//   - devices: Device registry for hop resolution
//   - readiness: Readiness controller gating each hop
//   - repo: Repository for execution history (may be nil)
//   - hub: WebSocket hub for execution events (may be nil)
//   - cfg: Timing and colour
//   - logger: Logger instance (may be nil)
func NewEngine(table *Table, devices DeviceResolver, readiness ReadinessWaiter, repo Repository, hub WSHub, cfg EngineConfig, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		table:     table,
		devices:   devices,
		readiness: readiness,
		codec:     payload.NewCodec(cfg.Color),
		repo:      repo,
		hub:       hub,
		metrics:   noopMetrics{},
		cfg:       cfg,
		logger:    logger,
		locks:     routeLocks{locks: make(map[string]*sync.Mutex)},
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// SetMetrics sets the metrics sink. Passing nil disables metrics.
func (e *Engine) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	e.metrics = m
}

// Table returns the route table.
func (e *Engine) Table() *Table {
	return e.table
}

// Execute runs the named route to completion.
//
// The run is detached from ctx cancellation: once started, every hop is
// attempted or skipped. Only the hard execution limit stops it early.
//
// Returns:
//   - *Execution: The execution record
//   - error: ErrRouteNotFound if no route has that name (nothing is written)
func (e *Engine) Execute(ctx context.Context, name string) (*Execution, error) {
	def, ok := e.table.Get(name)
	if !ok {
		e.logger.Warn("route not found", "route", name)
		return nil, fmt.Errorf("%w: %q", ErrRouteNotFound, name)
	}

	unlock := e.locks.lock(name)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), maxExecutionTime)
	defer cancel()

	hops := BuildHops(def)
	exec := &Execution{
		ID:        GenerateID(),
		Route:     def.Name,
		Kind:      def.Kind,
		StartedAt: e.now().UTC(),
		HopsTotal: len(hops),
		Hops:      make([]HopResult, 0, len(hops)),
	}

	e.logger.Info("route execution started",
		"route", def.Name,
		"kind", def.Kind,
		"execution_id", exec.ID,
		"hops", len(hops),
	)

	var offset uint16
	for i, hop := range hops {
		res := e.runHop(ctx, hop, offset)
		exec.Hops = append(exec.Hops, res)
		e.metrics.WriteHopMetric(def.Name, res)

		switch res.Outcome {
		case OutcomeWritten:
			exec.HopsWritten++
		case OutcomeFailed:
			exec.HopsFailed++
		default:
			exec.HopsSkipped++
			continue
		}

		// Wraps at 2^16 by design of the wire format.
		offset += hop.Advance

		if i < len(hops)-1 {
			if err := e.sleep(ctx, e.cfg.HopDelay); err != nil {
				e.logger.Warn("hop delay interrupted", "route", def.Name, "error", err)
			}
		}
	}

	e.finish(ctx, exec)
	return exec, nil
}

// runHop resolves, readies and writes a single hop.
func (e *Engine) runHop(ctx context.Context, hop Hop, offset uint16) HopResult {
	res := HopResult{
		Index:    hop.Index,
		Target:   hop.Target,
		Duration: hop.Duration,
		Pixels:   hop.Pixels,
		Offset:   offset,
		RouteID:  hop.RouteID,
		Mode:     hop.Mode,
	}

	dev, ok := e.devices.FindByName(hop.Target)
	if !ok {
		e.logger.Warn("hop skipped: device not found", "hop", hop.Index, "target", hop.Target)
		res.Outcome = OutcomeMissing
		return res
	}
	res.DeviceID = dev.ID

	start := e.now()
	ready := e.readiness.EnsureReady(ctx, dev.ID, e.cfg.ReadyTimeout, e.cfg.PollInterval)
	res.WaitMS = e.now().Sub(start).Milliseconds()

	if ready {
		dev, ok = e.devices.Get(dev.ID)
		ready = ok && dev.Ready()
	}
	if !ready {
		e.logger.Warn("hop skipped: device not ready",
			"hop", hop.Index,
			"target", hop.Target,
			"device_id", res.DeviceID,
			"wait_ms", res.WaitMS,
		)
		res.Outcome = OutcomeNotReady
		return res
	}

	frame := e.codec.EncodeChase(hop.Duration, hop.Pixels, offset, hop.RouteID)
	if err := dev.Send(hop.Mode, frame.Bytes()); err != nil {
		e.logger.Error("hop write failed", "hop", hop.Index, "device_id", dev.ID, "error", err)
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}

	e.logger.Info("hop written",
		"hop", hop.Index,
		"target", hop.Target,
		"device_id", dev.ID,
		"duration", hop.Duration,
		"pixels", hop.Pixels,
		"offset", offset,
		"route_id", hop.RouteID,
		"mode", hop.Mode,
	)
	res.Outcome = OutcomeWritten
	return res
}

// finish sets the final status, then records and announces the execution.
func (e *Engine) finish(ctx context.Context, exec *Execution) {
	exec.CompletedAt = e.now().UTC()
	exec.DurationMS = exec.CompletedAt.Sub(exec.StartedAt).Milliseconds()

	switch {
	case exec.HopsWritten == exec.HopsTotal:
		exec.Status = StatusCompleted
	case exec.HopsWritten > 0:
		exec.Status = StatusPartial
	default:
		exec.Status = StatusFailed
	}

	if e.repo != nil {
		if err := e.repo.CreateExecution(ctx, exec); err != nil {
			e.logger.Error("failed to record execution", "execution_id", exec.ID, "error", err)
		}
	}
	e.metrics.WriteExecutionMetric(exec)

	e.logger.Info("route execution complete",
		"route", exec.Route,
		"execution_id", exec.ID,
		"status", exec.Status,
		"written", exec.HopsWritten,
		"skipped", exec.HopsSkipped,
		"failed", exec.HopsFailed,
		"duration_ms", exec.DurationMS,
	)

	if e.hub != nil {
		e.hub.Broadcast(ChannelRouteExecuted, map[string]any{
			"route":        exec.Route,
			"execution_id": exec.ID,
			"status":       string(exec.Status),
			"written":      exec.HopsWritten,
			"skipped":      exec.HopsSkipped,
			"failed":       exec.HopsFailed,
			"duration_ms":  exec.DurationMS,
		})
	}
}

// BlinkAll writes a blink-all frame to every ready device, without response.
//
// Returns the number of devices written.
func (e *Engine) BlinkAll(_ context.Context, duration uint16) int {
	frame := e.codec.EncodeBlinkAll(duration, 0)
	devices := e.devices.ListByStatus(device.StatusReady)

	if len(devices) == 0 {
		e.logger.Warn("blink all: no ready devices")
		return 0
	}

	written := 0
	for _, d := range devices {
		if err := d.Send(device.WriteWithoutResponse, frame.Bytes()); err != nil {
			e.logger.Error("blink all write failed", "device_id", d.ID, "error", err)
			continue
		}
		written++
	}

	e.logger.Info("blink all sent", "duration", duration, "devices", written)
	if e.hub != nil {
		e.hub.Broadcast(ChannelBlinkAll, map[string]any{
			"duration": duration,
			"devices":  written,
		})
	}
	return written
}

// routeLocks hands out one mutex per route name.
type routeLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *routeLocks) lock(name string) func() {
	l.mu.Lock()
	m, ok := l.locks[name]
	if !ok {
		m = &sync.Mutex{}
		l.locks[name] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
