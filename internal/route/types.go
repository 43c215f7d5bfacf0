package route

import (
	"time"

	"github.com/google/uuid"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/device"
)

// Kind selects how a route's hops are derived.
type Kind string

// Route kinds.
const (
	// KindSingle sends one chase frame to one node.
	KindSingle Kind = "single"

	// KindTwoHop chains two nodes; the offset advances by half the duration.
	KindTwoHop Kind = "two_hop"

	// KindFourHop visits A, B, C, then A again with a different tag; the
	// offset advances by a fixed step.
	KindFourHop Kind = "four_hop"
)

// Four-hop defaults.
const (
	DefaultFrontTag   uint8  = 10
	DefaultBackTag    uint8  = 11
	DefaultEdgeTrim   uint16 = 1000
	DefaultOffsetStep uint16 = 200
)

// Definition is one immutable entry of the route table.
type Definition struct {
	Name     string   `json:"name"`
	Duration uint16   `json:"duration"`
	Pixels   uint16   `json:"pixels"`
	Kind     Kind     `json:"kind"`
	RouteID  uint8    `json:"route_id"`
	Devices  []string `json:"devices"`

	// Four-hop only. FrontTag and BackTag mark the two visits to Devices[0];
	// EdgeTrim is subtracted (saturating) from the duration of those visits.
	FrontTag   uint8  `json:"front_tag,omitempty"`
	BackTag    uint8  `json:"back_tag,omitempty"`
	EdgeTrim   uint16 `json:"edge_trim,omitempty"`
	OffsetStep uint16 `json:"offset_step,omitempty"`

	// AckHops lists hop indices written with response.
	AckHops []int `json:"ack_hops,omitempty"`
}

// HopCount returns the number of hops the definition expands to.
func (d Definition) HopCount() int {
	switch d.Kind {
	case KindSingle:
		return 1
	case KindTwoHop:
		return 2
	case KindFourHop:
		return 4
	default:
		return 0
	}
}

// Hop is one write in an execution, derived from a Definition.
type Hop struct {
	Index    int              `json:"index"`
	Target   string           `json:"target"`
	Duration uint16           `json:"duration"`
	Pixels   uint16           `json:"pixels"`
	RouteID  uint8            `json:"route_id"`
	Mode     device.WriteMode `json:"mode"`

	// Advance is added to the offset accumulator after this hop is written.
	Advance uint16 `json:"advance"`
}

// ExecutionStatus represents the outcome of a route execution.
type ExecutionStatus string

// Execution statuses.
const (
	// StatusCompleted means every hop was written.
	StatusCompleted ExecutionStatus = "completed"

	// StatusPartial means some hops were written and some skipped or failed.
	StatusPartial ExecutionStatus = "partial"

	// StatusFailed means no hop was written.
	StatusFailed ExecutionStatus = "failed"
)

// HopOutcome records what happened to one hop.
type HopOutcome string

// Hop outcomes.
const (
	OutcomeWritten  HopOutcome = "written"
	OutcomeMissing  HopOutcome = "device_missing"
	OutcomeNotReady HopOutcome = "not_ready"
	OutcomeFailed   HopOutcome = "write_failed"
)

// HopResult is the record of one hop within an execution.
type HopResult struct {
	Index    int              `json:"index"`
	Target   string           `json:"target"`
	DeviceID string           `json:"device_id,omitempty"`
	Duration uint16           `json:"duration"`
	Pixels   uint16           `json:"pixels"`
	Offset   uint16           `json:"offset"`
	RouteID  uint8            `json:"route_id"`
	Mode     device.WriteMode `json:"mode"`
	Outcome  HopOutcome       `json:"outcome"`
	Error    string           `json:"error,omitempty"`
	WaitMS   int64            `json:"wait_ms"`
}

// Execution is the record of one route run.
type Execution struct {
	ID          string          `json:"id"`
	Route       string          `json:"route"`
	Kind        Kind            `json:"kind"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
	DurationMS  int64           `json:"duration_ms"`
	HopsTotal   int             `json:"hops_total"`
	HopsWritten int             `json:"hops_written"`
	HopsSkipped int             `json:"hops_skipped"`
	HopsFailed  int             `json:"hops_failed"`
	Hops        []HopResult     `json:"hops"`
}

// GenerateID returns a new execution ID.
func GenerateID() string {
	return uuid.New().String()
}
