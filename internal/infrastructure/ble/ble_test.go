package ble

import (
	"context"
	"errors"
	"testing"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/device"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/trigger"
)

const (
	testService = "e44b9ddb-630f-9052-9f2c-1b764b52ce72"
	testChar    = "ebe9db63-5705-8280-37d5-808d4f5a35fb"
)

type recordingSink struct {
	events []device.Event
}

func (s *recordingSink) Post(ev device.Event) {
	s.events = append(s.events, ev)
}

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity(testService, testChar)
	if err != nil {
		t.Fatalf("ParseIdentity() error = %v", err)
	}
	if id.Service.String() != testService {
		t.Errorf("Service = %s, want %s", id.Service, testService)
	}
	if id.Characteristic.String() != testChar {
		t.Errorf("Characteristic = %s, want %s", id.Characteristic, testChar)
	}
}

func TestParseIdentity_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		svc, char string
	}{
		{"bad service", "not-a-uuid", testChar},
		{"bad characteristic", testService, "ebe9db63-zzzz-8280-37d5-808d4f5a35fb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseIdentity(tt.svc, tt.char); !errors.Is(err, ErrInvalidUUID) {
				t.Errorf("ParseIdentity() error = %v, want ErrInvalidUUID", err)
			}
		})
	}
}

func TestAcceptAdvertisement(t *testing.T) {
	tests := []struct {
		require, has, want bool
	}{
		{true, true, true},
		{true, false, false},
		{false, false, true},
		{false, true, true},
	}
	for _, tt := range tests {
		if got := acceptAdvertisement(tt.require, tt.has); got != tt.want {
			t.Errorf("acceptAdvertisement(%v, %v) = %v, want %v", tt.require, tt.has, got, tt.want)
		}
	}
}

func TestMatchesName(t *testing.T) {
	tests := []struct {
		adv, want string
		match     bool
	}{
		{"SYNC", "SYNC", true},
		{" SYNC ", "SYNC", true},
		{"SYNC2", "SYNC", false},
		{"", "SYNC", false},
		{"SYNC", "", false},
	}
	for _, tt := range tests {
		if got := matchesName(tt.adv, tt.want); got != tt.match {
			t.Errorf("matchesName(%q, %q) = %v, want %v", tt.adv, tt.want, got, tt.match)
		}
	}
}

func TestCentral_UnavailableIsNoop(t *testing.T) {
	sink := &recordingSink{}
	c := NewCentral(nil, sink, CentralConfig{})

	if err := c.Enable(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Enable() error = %v, want ErrUnavailable", err)
	}
	if err := c.StartScan(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("StartScan() error = %v, want ErrUnavailable", err)
	}
	if err := c.Connect("AA:BB"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Connect() error = %v, want ErrUnavailable", err)
	}
	if c.Scanning() || c.Enabled() {
		t.Error("unavailable central reports scanning or enabled")
	}
	c.StopScan()
	c.Close()

	if len(sink.events) != 0 {
		t.Errorf("events posted = %v, want none", sink.events)
	}
}

func TestCentral_ConnectUnknownAddress(t *testing.T) {
	c := NewCentral(nil, &recordingSink{}, CentralConfig{})
	c.enabled = true

	if err := c.Connect("AA:BB"); !errors.Is(err, ErrUnknownAddress) {
		t.Errorf("Connect() error = %v, want ErrUnknownAddress", err)
	}
}

func TestPeripheral_SendBeforeStart(t *testing.T) {
	p := NewPeripheral(nil, "SYNC", Identity{})

	if err := p.Send([]byte{trigger.Value}); !errors.Is(err, trigger.ErrNotReady) {
		t.Errorf("Send() error = %v, want trigger.ErrNotReady", err)
	}
	if err := p.Start(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Start() error = %v, want ErrUnavailable", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestListener_LinkLostBeforeConnectReturns(t *testing.T) {
	l := NewListener(nil, ListenerConfig{Name: "SYNC"})

	lost := l.arm("AA:BB")
	// Disconnect callback fires while Connect is still in flight.
	l.linkLost("AA:BB")

	select {
	case <-lost:
	default:
		t.Fatal("drop during connect was not signalled")
	}

	// A second callback for the same link must not close twice.
	l.linkLost("AA:BB")
}

func TestListener_LinkLostOtherAddress(t *testing.T) {
	l := NewListener(nil, ListenerConfig{Name: "SYNC"})

	lost := l.arm("AA:BB")
	l.linkLost("CC:DD")

	select {
	case <-lost:
		t.Fatal("unrelated disconnect closed the session")
	default:
	}

	l.disarm()
	l.linkLost("AA:BB")
	select {
	case <-lost:
		t.Fatal("disconnect after session end was signalled")
	default:
	}
}
