package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "routelight-test",
		},
		QoS:       1,
		Reconnect: config.MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 5},
	}
}

// disconnectedClient is a Client that never dialled.
func disconnectedClient() *Client {
	return &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}
}

// ─── Validation without a broker ─────────────────────────────────────────────

func TestPublish_Validation(t *testing.T) {
	c := disconnectedClient()

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", nil, 0, ErrInvalidTopic},
		{"bad qos", "routelight/x", nil, 3, ErrInvalidQoS},
		{"too large", "routelight/x", make([]byte, maxPayloadSize+1), 0, ErrPublishFailed},
		{"not connected", "routelight/x", []byte("{}"), 1, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishJSON_NotConnected(t *testing.T) {
	c := disconnectedClient()
	if err := c.PublishJSON("routelight/x", map[string]int{"a": 1}, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishJSON() error = %v, want ErrNotConnected", err)
	}
	if err := c.PublishJSON("routelight/x", make(chan int), false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("PublishJSON(chan) error = %v, want ErrPublishFailed", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := disconnectedClient()
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 0, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic: %v", err)
	}
	if err := c.Subscribe("a", 5, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos: %v", err)
	}
	if err := c.Subscribe("a", 0, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler: %v", err)
	}
	if err := c.Subscribe("a", 0, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected: %v", err)
	}
	if c.HasSubscription("a") {
		t.Error("failed subscription tracked")
	}
	if err := c.Unsubscribe("a"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck_Disconnected(t *testing.T) {
	c := disconnectedClient()
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) = %v, want context.Canceled", err)
	}
}

func TestClose_NeverConnected(t *testing.T) {
	if err := disconnectedClient().Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

// ─── Handler wrapping ────────────────────────────────────────────────────────

type recordingLogger struct {
	errors, warns []string
}

func (l *recordingLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.warns = append(l.warns, msg) }

func TestDispatch_RecoversPanicAndLogsErrors(t *testing.T) {
	c := disconnectedClient()
	logger := &recordingLogger{}
	c.SetLogger(logger)

	c.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)
	c.dispatch(func(string, []byte) error { return errors.New("bad payload") }, "t", nil)

	var got string
	c.dispatch(func(topic string, _ []byte) error { got = topic; return nil }, "routelight/command/blink", nil)

	if len(logger.errors) != 1 || len(logger.warns) != 1 {
		t.Errorf("errors=%v warns=%v", logger.errors, logger.warns)
	}
	if got != "routelight/command/blink" {
		t.Errorf("handler saw topic %q", got)
	}
}

// ─── Topics and payloads ────────────────────────────────────────────────────

func TestTopics(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		got, want string
	}{
		{topics.RouteCommand("CHINA"), "routelight/command/route/CHINA"},
		{topics.AllRouteCommands(), "routelight/command/route/+"},
		{topics.BlinkCommand(), "routelight/command/blink"},
		{topics.DeviceStatus("AA:BB"), "routelight/core/device/AA:BB/status"},
		{topics.Event("route.executed"), "routelight/core/event/route.executed"},
		{topics.SystemStatus(), "routelight/system/status"},
		{topics.Trigger(), "routelight/trigger"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestParseRouteCommand(t *testing.T) {
	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"routelight/command/route/CHINA", "CHINA", true},
		{"routelight/command/route/SENDAI→MUMBAI→LONDON", "SENDAI→MUMBAI→LONDON", true},
		{"routelight/command/route/", "", false},
		{"routelight/command/route/a/b", "", false},
		{"routelight/command/blink", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRouteCommand(tt.topic)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseRouteCommand(%q) = (%q, %v), want (%q, %v)", tt.topic, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestStatusPayload(t *testing.T) {
	var msg StatusMessage
	if err := json.Unmarshal([]byte(statusPayload("core", "offline", "graceful_shutdown")), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Status != "offline" || msg.ClientID != "core" || msg.Reason != "graceful_shutdown" || msg.Timestamp == "" {
		t.Errorf("status = %+v", msg)
	}
	if strings.Contains(statusPayload("core", "online", ""), "reason") {
		t.Error("online payload carries an empty reason")
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Auth.Username = "lab"

	opts := buildClientOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.Username != "lab" || opts.TLSConfig == nil {
		t.Errorf("auth/tls not applied: user=%q tls=%v", opts.Username, opts.TLSConfig)
	}
	if !opts.WillEnabled || opts.WillTopic != "routelight/system/status" || !opts.WillRetained {
		t.Errorf("will = %v %q retained=%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
}
