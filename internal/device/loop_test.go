package device

import (
	"context"
	"testing"
	"time"
)

func TestLoop_AppliesEventsInOrder(t *testing.T) {
	reg := NewRegistry()
	loop := NewLoop(reg, 4)
	changes, cancel := reg.Subscribe(16)
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	go loop.Run(ctx)

	ch := &fakeChannel{}
	go func() {
		loop.Post(Discovered("id1", "SENDAI", 0))
		loop.Post(ConnectRequested("id1"))
		loop.Post(Connected("id1"))
		loop.Post(ChannelReady("id1", ch))
	}()

	want := []Status{StatusDiscovered, StatusConnecting, StatusConnected, StatusReady}
	for i, w := range want {
		select {
		case c := <-changes:
			if c.To != w {
				t.Fatalf("change %d to %s, want %s", i, c.To, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for change %d", i)
		}
	}

	stop()
	select {
	case <-loop.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}

	// Posting after stop must not block.
	loop.Post(Disconnected("id1", nil))
	if got := reg.Status("id1"); got != StatusReady {
		t.Errorf("status = %s, want ready", got)
	}
}
