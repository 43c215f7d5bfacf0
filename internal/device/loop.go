package device

import (
	"context"
)

// defaultLoopBuffer is the event queue depth used when NewLoop is given 0.
const defaultLoopBuffer = 64

// Loop serializes device events onto a single goroutine.
//
// Transport callbacks arrive on arbitrary goroutines; they Post events here
// and Run applies them to the Registry one at a time, in arrival order.
type Loop struct {
	registry *Registry
	events   chan Event
	done     chan struct{}
	logger   Logger
}

// NewLoop creates a loop feeding registry. buffer is the queue depth.
func NewLoop(registry *Registry, buffer int) *Loop {
	if buffer <= 0 {
		buffer = defaultLoopBuffer
	}
	return &Loop{
		registry: registry,
		events:   make(chan Event, buffer),
		done:     make(chan struct{}),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the loop.
func (l *Loop) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	l.logger = logger
}

// Post enqueues ev. It blocks while the queue is full and drops the event
// once the loop has stopped.
func (l *Loop) Post(ev Event) {
	select {
	case <-l.done:
		l.logger.Debug("event dropped after loop stopped", "device_id", ev.ID, "event", ev.Kind)
		return
	default:
	}

	select {
	case l.events <- ev:
	case <-l.done:
		l.logger.Debug("event dropped after loop stopped", "device_id", ev.ID, "event", ev.Kind)
	}
}

// Run applies queued events until ctx is cancelled. Call it once.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	l.logger.Info("device event loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("device event loop stopped")
			return
		case ev := <-l.events:
			l.registry.Apply(ev)
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
