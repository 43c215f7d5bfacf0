package control

import (
	"context"
	"errors"
	"sync"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/audit"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/route"
)

// RouteRunner is the part of route.Engine the service drives.
type RouteRunner interface {
	Execute(ctx context.Context, name string) (*route.Execution, error)
	BlinkAll(ctx context.Context, duration uint16) int
}

// Notifier sends the external trigger.
type Notifier interface {
	Notify(ctx context.Context) bool
}

// Journal records what the service was asked to do.
type Journal interface {
	Create(ctx context.Context, entry *audit.Entry) error
}

// Logger defines the logging interface used by the service.
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

// Service is the single entry point for "show" actions, whichever surface
// (HTTP, MQTT) they arrive on. It fires the trigger first when asked, then
// runs the route.
type Service struct {
	runner        RouteRunner
	notifier      Notifier
	blinkDuration uint16
	logger        Logger
	journal       Journal

	wg sync.WaitGroup
}

// NewService creates a control service.
//
// Parameters:
//   - runner: The route engine
//   - notifier: Trigger signal (may be nil when the trigger is disabled)
//   - blinkDuration: Duration used when a blink request gives none
func NewService(runner RouteRunner, notifier Notifier, blinkDuration uint16) *Service {
	return &Service{
		runner:        runner,
		notifier:      notifier,
		blinkDuration: blinkDuration,
		logger:        noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// SetJournal sets where commands are recorded. A nil journal disables
// recording.
func (s *Service) SetJournal(j Journal) {
	s.journal = j
}

// RunRoute optionally notifies the external controller, then executes the
// named route. The trigger outcome never affects the route.
func (s *Service) RunRoute(ctx context.Context, name string, trigger bool) (*route.Execution, error) {
	details := map[string]any{"trigger": trigger}
	if trigger {
		details["trigger_sent"] = s.notify(ctx)
	}

	exec, err := s.runner.Execute(ctx, name)
	outcome := "error"
	switch {
	case errors.Is(err, route.ErrRouteNotFound):
		outcome = "not_found"
	case err != nil:
		details["error"] = err.Error()
	default:
		outcome = string(exec.Status)
		details["execution_id"] = exec.ID
	}
	s.record(ctx, audit.ActionRouteExecute, name, outcome, details)
	return exec, err
}

// BlinkAll optionally notifies, then blinks every ready node. A zero
// duration uses the configured default. Returns the number of nodes written.
func (s *Service) BlinkAll(ctx context.Context, duration uint16, trigger bool) int {
	if duration == 0 {
		duration = s.blinkDuration
	}
	details := map[string]any{"duration": duration, "trigger": trigger}
	if trigger {
		details["trigger_sent"] = s.notify(ctx)
	}

	n := s.runner.BlinkAll(ctx, duration)
	details["devices"] = n
	s.record(ctx, audit.ActionBlinkAll, "", "sent", details)
	return n
}

// Trigger sends the trigger on its own. It reports whether the first send
// went through; false when no notifier is configured.
func (s *Service) Trigger(ctx context.Context) bool {
	sent := s.notify(ctx)
	outcome := "sent"
	switch {
	case s.notifier == nil:
		outcome = "disabled"
	case !sent:
		outcome = "failed"
	}
	s.record(ctx, audit.ActionTrigger, "", outcome, nil)
	return sent
}

func (s *Service) notify(ctx context.Context) bool {
	if s.notifier == nil {
		s.logger.Debug("trigger requested but disabled")
		return false
	}
	return s.notifier.Notify(ctx)
}

// record writes a journal entry. The entry is written even when ctx has
// been cancelled, since the command already ran.
func (s *Service) record(ctx context.Context, action audit.Action, target, outcome string, details map[string]any) {
	if s.journal == nil {
		return
	}
	entry := &audit.Entry{
		Action:  action,
		Target:  target,
		Source:  audit.SourceFrom(ctx),
		Outcome: outcome,
		Details: details,
	}
	if err := s.journal.Create(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("recording command failed", "action", action, "error", err)
	}
}

// Go runs fn in the background, tracked by Wait.
func (s *Service) Go(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Wait blocks until background runs started with Go have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
