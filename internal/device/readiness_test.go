package device

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock advances only when After is called, so polling is deterministic.
type fakeClock struct {
	now       time.Time
	waits     int
	onAdvance func(now time.Time)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.waits++
	c.now = c.now.Add(d)
	if c.onAdvance != nil {
		c.onAdvance(c.now)
	}
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

// fakeConnector records connect calls and optionally fails to start.
type fakeConnector struct {
	calls []string
	err   error
}

func (f *fakeConnector) Connect(id string) error {
	f.calls = append(f.calls, id)
	return f.err
}

func setupReadiness(t *testing.T) (*Registry, *Readiness, *fakeConnector, *fakeClock) {
	t.Helper()
	reg := NewRegistry()
	conn := &fakeConnector{}
	clock := newFakeClock()
	rd := NewReadiness(reg, reg, conn)
	rd.SetClock(clock)
	return reg, rd, conn, clock
}

func TestEnsureReady_BecomesReadyBeforeTimeout(t *testing.T) {
	reg, rd, conn, clock := setupReadiness(t)
	reg.Apply(Discovered("id1", "SENDAI", 0))

	start := clock.Now()
	clock.onAdvance = func(now time.Time) {
		if now.Sub(start) == time.Second {
			reg.Apply(Connected("id1"))
			reg.Apply(ChannelReady("id1", &fakeChannel{}))
		}
	}

	if !rd.EnsureReady(context.Background(), "id1", 6*time.Second, 250*time.Millisecond) {
		t.Fatal("EnsureReady() = false, want true")
	}
	if len(conn.calls) != 1 || conn.calls[0] != "id1" {
		t.Errorf("connect calls = %v, want [id1]", conn.calls)
	}
	if clock.waits != 4 {
		t.Errorf("polls = %d, want 4", clock.waits)
	}
}

func TestEnsureReady_TimesOut(t *testing.T) {
	reg, rd, _, clock := setupReadiness(t)
	reg.Apply(Discovered("id1", "SENDAI", 0))

	start := clock.Now()
	if rd.EnsureReady(context.Background(), "id1", 6*time.Second, 250*time.Millisecond) {
		t.Fatal("EnsureReady() = true, want false")
	}
	if elapsed := clock.Now().Sub(start); elapsed != 6*time.Second {
		t.Errorf("gave up after %v, want 6s", elapsed)
	}
	if got := reg.Status("id1"); got != StatusConnecting {
		t.Errorf("status = %s, want connecting", got)
	}
}

func TestEnsureReady_DeadlineBoundary(t *testing.T) {
	reg, rd, _, clock := setupReadiness(t)
	reg.Apply(Discovered("id1", "SENDAI", 0))

	start := clock.Now()
	clock.onAdvance = func(now time.Time) {
		if now.Sub(start) == 2*time.Second {
			reg.Apply(Connected("id1"))
			reg.Apply(ChannelReady("id1", &fakeChannel{}))
		}
	}

	// The readiness check runs before the deadline check, so a device that
	// is ready when the final check fires at the deadline still counts.
	if !rd.EnsureReady(context.Background(), "id1", 2*time.Second, time.Second) {
		t.Error("EnsureReady() = false for device ready at the final poll")
	}

	reg2, rd2, _, clock2 := setupReadiness(t)
	reg2.Apply(Discovered("id1", "SENDAI", 0))
	start2 := clock2.Now()
	clock2.onAdvance = func(now time.Time) {
		if now.Sub(start2) > 2*time.Second {
			reg2.Apply(Connected("id1"))
			reg2.Apply(ChannelReady("id1", &fakeChannel{}))
		}
	}
	if rd2.EnsureReady(context.Background(), "id1", 2*time.Second, time.Second) {
		t.Error("EnsureReady() = true for device ready after the deadline")
	}
}

func TestEnsureReady_LastWaitStopsAtDeadline(t *testing.T) {
	reg, rd, _, clock := setupReadiness(t)
	reg.Apply(Discovered("id1", "SENDAI", 0))

	start := clock.Now()
	clock.onAdvance = func(now time.Time) {
		if now.Sub(start) >= 1200*time.Millisecond {
			reg.Apply(Connected("id1"))
			reg.Apply(ChannelReady("id1", &fakeChannel{}))
		}
	}

	// 1s is not a multiple of 300ms: polls at 300, 600, 900, then 1000.
	if rd.EnsureReady(context.Background(), "id1", time.Second, 300*time.Millisecond) {
		t.Error("EnsureReady() = true for device ready after the timeout")
	}
	if elapsed := clock.Now().Sub(start); elapsed != time.Second {
		t.Errorf("gave up after %v, want 1s", elapsed)
	}
	if clock.waits != 4 {
		t.Errorf("polls = %d, want 4", clock.waits)
	}
}

func TestEnsureReady_AlreadyReadySkipsConnect(t *testing.T) {
	reg, rd, conn, clock := setupReadiness(t)
	readyDevice(t, reg, "id1", "SENDAI", &fakeChannel{})

	if !rd.EnsureReady(context.Background(), "id1", time.Second, 100*time.Millisecond) {
		t.Fatal("EnsureReady() = false, want true")
	}
	if len(conn.calls) != 0 {
		t.Errorf("connect calls = %v, want none", conn.calls)
	}
	if clock.waits != 0 {
		t.Errorf("polls = %d, want 0", clock.waits)
	}
}

func TestEnsureReady_UnknownDevice(t *testing.T) {
	_, rd, conn, _ := setupReadiness(t)

	if rd.EnsureReady(context.Background(), "ghost", time.Second, 100*time.Millisecond) {
		t.Error("EnsureReady() = true for unknown device")
	}
	if len(conn.calls) != 0 {
		t.Errorf("connect calls = %v, want none", conn.calls)
	}
}

func TestEnsureReady_ContextCancelled(t *testing.T) {
	reg, rd, _, _ := setupReadiness(t)
	reg.Apply(Discovered("id1", "SENDAI", 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if rd.EnsureReady(ctx, "id1", time.Hour, time.Millisecond) {
		t.Error("EnsureReady() = true with cancelled context")
	}
}

func TestEnsureReady_NegotiationFailureTimesOut(t *testing.T) {
	reg, rd, _, clock := setupReadiness(t)
	reg.Apply(Discovered("id1", "SENDAI", 0))

	clock.onAdvance = func(time.Time) {
		if reg.Status("id1") == StatusConnecting {
			reg.Apply(Connected("id1"))
			reg.Apply(NegotiationFailed("id1", errors.New("no characteristic")))
		}
	}

	if rd.EnsureReady(context.Background(), "id1", time.Second, 250*time.Millisecond) {
		t.Fatal("EnsureReady() = true for device without channel")
	}
	if got := reg.Status("id1"); got != StatusConnected {
		t.Errorf("status = %s, want connected", got)
	}
}

func TestReadiness_Connect(t *testing.T) {
	t.Run("unknown device", func(t *testing.T) {
		_, rd, _, _ := setupReadiness(t)
		if err := rd.Connect("ghost"); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Connect() error = %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("already connecting", func(t *testing.T) {
		reg, rd, conn, _ := setupReadiness(t)
		reg.Apply(Discovered("id1", "SENDAI", 0))
		reg.Apply(ConnectRequested("id1"))

		if err := rd.Connect("id1"); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		if len(conn.calls) != 0 {
			t.Errorf("connect calls = %v, want none", conn.calls)
		}
	})

	t.Run("transport unavailable fails the device", func(t *testing.T) {
		reg, rd, conn, _ := setupReadiness(t)
		conn.err = errors.New("adapter off")
		reg.Apply(Discovered("id1", "SENDAI", 0))

		if err := rd.Connect("id1"); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		if got := reg.Status("id1"); got != StatusFailed {
			t.Errorf("status = %s, want failed", got)
		}
	})

	t.Run("negotiation in progress", func(t *testing.T) {
		reg, rd, conn, _ := setupReadiness(t)
		reg.Apply(Discovered("id1", "SENDAI", 0))
		reg.Apply(ConnectRequested("id1"))
		reg.Apply(Connected("id1"))

		if err := rd.Connect("id1"); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		if len(conn.calls) != 0 {
			t.Errorf("connect calls = %v, want none", conn.calls)
		}
		if _, ok := reg.Apply(ChannelReady("id1", &fakeChannel{})); !ok {
			t.Error("in-flight ChannelReady dropped")
		}
		if got := reg.Status("id1"); got != StatusReady {
			t.Errorf("status = %s, want ready", got)
		}
	})

	t.Run("retry after negotiation failure", func(t *testing.T) {
		reg, rd, conn, _ := setupReadiness(t)
		reg.Apply(Discovered("id1", "SENDAI", 0))
		reg.Apply(ConnectRequested("id1"))
		reg.Apply(Connected("id1"))
		reg.Apply(NegotiationFailed("id1", errors.New("no characteristic")))

		if err := rd.Connect("id1"); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		if len(conn.calls) != 1 {
			t.Errorf("connect calls = %v, want one", conn.calls)
		}
		d, _ := reg.Get("id1")
		if d.Status != StatusConnecting || d.LastError != "" {
			t.Errorf("device = %s/%q, want connecting with error cleared", d.Status, d.LastError)
		}
	})

	t.Run("stale error cleared on fresh attempt", func(t *testing.T) {
		reg, rd, conn, _ := setupReadiness(t)
		reg.Apply(Discovered("id1", "SENDAI", 0))
		reg.Apply(ConnectRequested("id1"))
		reg.Apply(ConnectFailed("id1", errors.New("timeout")))
		reg.Apply(ConnectRequested("id1"))
		reg.Apply(Connected("id1"))

		if err := rd.Connect("id1"); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		if len(conn.calls) != 0 {
			t.Errorf("connect calls = %v, want none while negotiating", conn.calls)
		}
	})

	t.Run("retry from failed", func(t *testing.T) {
		reg, rd, conn, _ := setupReadiness(t)
		reg.Apply(Discovered("id1", "SENDAI", 0))
		reg.Apply(ConnectRequested("id1"))
		reg.Apply(ConnectFailed("id1", errors.New("timeout")))

		if err := rd.Connect("id1"); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		if got := reg.Status("id1"); got != StatusConnecting {
			t.Errorf("status = %s, want connecting", got)
		}
		if len(conn.calls) != 1 {
			t.Errorf("connect calls = %v, want one", conn.calls)
		}
	})
}
