// Package audit records who asked the coordinator to do what.
//
// Every show action (route execution, blink-all, stand-alone trigger) and
// every radio control request (scan start/stop, device connect) is written to
// the audit_logs table together with the surface it arrived on.
package audit

import (
	"context"
	"time"
)

// Action names a journaled request.
type Action string

// Journaled actions.
const (
	ActionRouteExecute  Action = "route.execute"
	ActionBlinkAll      Action = "blink_all"
	ActionTrigger       Action = "trigger"
	ActionScanStart     Action = "scan.start"
	ActionScanStop      Action = "scan.stop"
	ActionDeviceConnect Action = "device.connect"
)

// Source names the surface a request arrived on.
type Source string

// Request sources.
const (
	SourceAPI      Source = "api"
	SourceMQTT     Source = "mqtt"
	SourceInternal Source = "internal"
)

// Entry is a single audit trail record.
type Entry struct {
	ID        string         `json:"id"`
	Action    Action         `json:"action"`
	Target    string         `json:"target,omitempty"`
	Source    Source         `json:"source"`
	Outcome   string         `json:"outcome"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Action Action // optional
	Source Source // optional
	Target string // optional
	Limit  int    // default 50, max 200
	Offset int
}

// ListResult is one page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository stores and lists audit entries.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

type sourceKey struct{}

// WithSource tags ctx with the surface a request arrived on.
func WithSource(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, src)
}

// SourceFrom returns the source stored by WithSource, or SourceInternal.
func SourceFrom(ctx context.Context) Source {
	if src, ok := ctx.Value(sourceKey{}).(Source); ok && src != "" {
		return src
	}
	return SourceInternal
}
