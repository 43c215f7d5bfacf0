package trigger

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Value is the single byte sent on every trigger.
const Value byte = 0x01

// Sender pushes a notification to every subscribed listener. It returns
// ErrBufferFull when the radio queue is full.
type Sender interface {
	Send(p []byte) error
}

// Logger defines the logging interface used by Signal.
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

// Config holds the retry policy.
type Config struct {
	// RetryDelay is the wait before each retry of a full buffer.
	RetryDelay time.Duration

	// MaxRetries bounds the retries. Zero means a full buffer drops the
	// trigger immediately.
	MaxRetries int
}

// Signal is the fire-and-forget "route about to start" notification.
//
// Thread Safety: Notify is safe for concurrent use. Retries run on their own
// goroutines; Wait blocks until they have all finished.
type Signal struct {
	sender Sender
	cfg    Config
	logger Logger
	after  func(d time.Duration) <-chan time.Time

	wg sync.WaitGroup
}

// NewSignal creates a trigger signal on top of sender.
func NewSignal(sender Sender, cfg Config) *Signal {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Signal{
		sender: sender,
		cfg:    cfg,
		logger: noopLogger{},
		after:  time.After,
	}
}

// SetLogger sets the logger for the signal.
func (s *Signal) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Notify sends the trigger value once.
//
// If the buffer is full the send is retried in the background, after
// RetryDelay, up to MaxRetries times. Notify itself never blocks on the
// retry and never returns an error: a trigger that cannot be delivered is
// logged and dropped.
//
// Returns:
//   - bool: true if the first send succeeded
func (s *Signal) Notify(ctx context.Context) bool {
	err := s.send()
	if err == nil {
		s.logger.Info("trigger sent")
		return true
	}

	if !errors.Is(err, ErrBufferFull) || s.cfg.MaxRetries == 0 {
		s.logger.Warn("trigger dropped", "error", err)
		return false
	}

	s.logger.Warn("trigger buffer full, retrying", "retry_delay", s.cfg.RetryDelay)
	s.wg.Add(1)
	go s.retry(context.WithoutCancel(ctx))
	return false
}

func (s *Signal) retry(ctx context.Context) {
	defer s.wg.Done()

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-s.after(s.cfg.RetryDelay):
		}

		err := s.send()
		if err == nil {
			s.logger.Info("trigger sent on retry", "attempt", attempt)
			return
		}
		if !errors.Is(err, ErrBufferFull) {
			s.logger.Warn("trigger dropped", "attempt", attempt, "error", err)
			return
		}
	}
	s.logger.Warn("trigger dropped: buffer still full", "retries", s.cfg.MaxRetries)
}

func (s *Signal) send() error {
	return s.sender.Send([]byte{Value})
}

// Wait blocks until background retries have finished.
func (s *Signal) Wait() {
	s.wg.Wait()
}
