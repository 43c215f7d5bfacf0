package influxdb

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/device"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/config"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/route"
)

func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "routelight-dev-token",
		Org:           "opencampus",
		Bucket:        "routelight",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

// connectOrSkip returns a live client or skips when no server is running.
func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		t.Skip("set RUN_INTEGRATION to run against a local InfluxDB")
	}
	c, err := Connect(testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { c.Close() }) //nolint:errcheck // test cleanup
	return c
}

func lineOf(p *write.Point) string {
	return write.PointToLineProtocol(p, time.Millisecond)
}

// ─── Connection ─────────────────────────────────────────────────────────────

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := Connect(cfg); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestClient_ClosedIsNoop(t *testing.T) {
	var c Client

	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
	c.Flush()
	c.WriteHopMetric("CHINA", route.HopResult{})
}

func TestConnect_Live(t *testing.T) {
	c := connectOrSkip(t)

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}
	c.WriteExecutionMetric(&route.Execution{Route: "CHINA", Kind: route.KindSingle, Status: route.StatusCompleted, CompletedAt: time.Now()})
	c.Flush()
}

// ─── Points ─────────────────────────────────────────────────────────────────

func TestHopPoint(t *testing.T) {
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	line := lineOf(hopPoint("SENDAI→MUMBAI→LONDON", route.HopResult{
		Index:    1,
		Target:   "LONDON",
		Offset:   2000,
		Duration: 4000,
		Outcome:  route.OutcomeWritten,
		Mode:     device.WriteWithoutResponse,
		WaitMS:   850,
	}, at))

	for _, want := range []string{
		"route_hop,",
		"outcome=written",
		"target=LONDON",
		"offset=2000i",
		"duration=4000i",
		"wait_ms=850i",
		"index=1i",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestExecutionPoint(t *testing.T) {
	line := lineOf(executionPoint(&route.Execution{
		Route:       "CHINA",
		Kind:        route.KindSingle,
		Status:      route.StatusPartial,
		DurationMS:  6100,
		HopsWritten: 1,
		HopsSkipped: 1,
		CompletedAt: time.Now(),
	}))

	for _, want := range []string{"route_execution,", "status=partial", "kind=single", "duration_ms=6100i", "skipped=1i"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestDeviceStatusPoint(t *testing.T) {
	line := lineOf(deviceStatusPoint(device.Change{
		DeviceID: "AA:BB",
		Name:     "SEOUL",
		From:     device.StatusConnected,
		To:       device.StatusReady,
		At:       time.Now(),
	}))

	for _, want := range []string{"device_status,", "name=SEOUL", `status="ready"`, "ready=true"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}
