package trigger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedSender returns the queued errors in order, then nil.
type scriptedSender struct {
	mu     sync.Mutex
	errs   []error
	sent   [][]byte
	writes int
}

func (s *scriptedSender) Send(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return err
		}
	}
	s.sent = append(s.sent, append([]byte(nil), p...))
	return nil
}

func (s *scriptedSender) counts() (writes, delivered int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes, len(s.sent)
}

// instantAfter fires immediately and records requested delays.
type instantAfter struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (a *instantAfter) after(d time.Duration) <-chan time.Time {
	a.mu.Lock()
	a.delays = append(a.delays, d)
	a.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func newTestSignal(sender Sender, retries int) (*Signal, *instantAfter) {
	s := NewSignal(sender, Config{RetryDelay: time.Second, MaxRetries: retries})
	a := &instantAfter{}
	s.after = a.after
	return s, a
}

func TestNotify_SendsOneByte(t *testing.T) {
	sender := &scriptedSender{}
	s, _ := newTestSignal(sender, 1)

	if !s.Notify(context.Background()) {
		t.Fatal("Notify() = false, want true")
	}
	if len(sender.sent) != 1 || len(sender.sent[0]) != 1 || sender.sent[0][0] != 0x01 {
		t.Errorf("sent = %v, want [[0x01]]", sender.sent)
	}
}

func TestNotify_RetriesOnceAfterFullBuffer(t *testing.T) {
	sender := &scriptedSender{errs: []error{ErrBufferFull}}
	s, a := newTestSignal(sender, 1)

	if s.Notify(context.Background()) {
		t.Error("Notify() = true, want false when first send fails")
	}
	s.Wait()

	writes, delivered := sender.counts()
	if writes != 2 || delivered != 1 {
		t.Errorf("writes=%d delivered=%d, want 2/1", writes, delivered)
	}
	if len(a.delays) != 1 || a.delays[0] != time.Second {
		t.Errorf("retry delays = %v, want [1s]", a.delays)
	}
}

func TestNotify_DropsAfterRetriesExhausted(t *testing.T) {
	tests := []struct {
		name       string
		retries    int
		wantWrites int
	}{
		{"no retries", 0, 1},
		{"one retry", 1, 2},
		{"three retries", 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &scriptedSender{errs: []error{
				ErrBufferFull, ErrBufferFull, ErrBufferFull, ErrBufferFull, ErrBufferFull,
			}}
			s, _ := newTestSignal(sender, tt.retries)

			s.Notify(context.Background())
			s.Wait()

			writes, delivered := sender.counts()
			if writes != tt.wantWrites || delivered != 0 {
				t.Errorf("writes=%d delivered=%d, want %d/0", writes, delivered, tt.wantWrites)
			}
		})
	}
}

func TestNotify_OtherErrorsNotRetried(t *testing.T) {
	sender := &scriptedSender{errs: []error{ErrNotReady}}
	s, a := newTestSignal(sender, 3)

	if s.Notify(context.Background()) {
		t.Error("Notify() = true, want false")
	}
	s.Wait()

	if writes, _ := sender.counts(); writes != 1 {
		t.Errorf("writes = %d, want 1", writes)
	}
	if len(a.delays) != 0 {
		t.Errorf("retry scheduled for a non-buffer error: %v", a.delays)
	}
}

func TestNotify_RetryStopsOnDifferentError(t *testing.T) {
	sender := &scriptedSender{errs: []error{ErrBufferFull, errors.New("link lost"), nil}}
	s, _ := newTestSignal(sender, 3)

	s.Notify(context.Background())
	s.Wait()

	if writes, delivered := sender.counts(); writes != 2 || delivered != 0 {
		t.Errorf("writes=%d delivered=%d, want 2/0", writes, delivered)
	}
}

func TestNotify_RetrySurvivesCallerCancellation(t *testing.T) {
	sender := &scriptedSender{errs: []error{ErrBufferFull}}
	s, _ := newTestSignal(sender, 1)

	ctx, cancel := context.WithCancel(context.Background())
	s.Notify(ctx)
	cancel()
	s.Wait()

	if _, delivered := sender.counts(); delivered != 1 {
		t.Errorf("delivered = %d, want 1", delivered)
	}
}

func TestNewSignal_NegativeRetries(t *testing.T) {
	s := NewSignal(&scriptedSender{}, Config{MaxRetries: -2})
	if s.cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", s.cfg.MaxRetries)
	}
}
