package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/device"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/route"
)

// Measurement names.
const (
	MeasurementHop          = "route_hop"
	MeasurementExecution    = "route_execution"
	MeasurementDeviceStatus = "device_status"
)

// WriteHopMetric records one hop. It satisfies route.Metrics.
func (c *Client) WriteHopMetric(routeName string, hop route.HopResult) {
	c.writePoint(hopPoint(routeName, hop, time.Now()))
}

// WriteExecutionMetric records a finished execution. It satisfies
// route.Metrics.
func (c *Client) WriteExecutionMetric(exec *route.Execution) {
	c.writePoint(executionPoint(exec))
}

// WriteDeviceStatus records a node status change.
func (c *Client) WriteDeviceStatus(ch device.Change) {
	c.writePoint(deviceStatusPoint(ch))
}

func hopPoint(routeName string, hop route.HopResult, at time.Time) *write.Point {
	return write.NewPoint(MeasurementHop,
		map[string]string{
			"route":   routeName,
			"target":  hop.Target,
			"outcome": string(hop.Outcome),
			"mode":    string(hop.Mode),
		},
		map[string]any{
			"index":    hop.Index,
			"offset":   int64(hop.Offset),
			"duration": int64(hop.Duration),
			"wait_ms":  hop.WaitMS,
		},
		at)
}

func executionPoint(exec *route.Execution) *write.Point {
	return write.NewPoint(MeasurementExecution,
		map[string]string{
			"route":  exec.Route,
			"kind":   string(exec.Kind),
			"status": string(exec.Status),
		},
		map[string]any{
			"duration_ms": exec.DurationMS,
			"written":     exec.HopsWritten,
			"skipped":     exec.HopsSkipped,
			"failed":      exec.HopsFailed,
		},
		exec.CompletedAt)
}

func deviceStatusPoint(ch device.Change) *write.Point {
	return write.NewPoint(MeasurementDeviceStatus,
		map[string]string{
			"device_id": ch.DeviceID,
			"name":      ch.Name,
		},
		map[string]any{
			"status": string(ch.To),
			"ready":  ch.To == device.StatusReady,
		},
		ch.At)
}
