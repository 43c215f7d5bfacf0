package api

import (
	"context"
	"net/http"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/audit"
)

// handleScanStatus reports whether a discovery cycle is running.
func (s *Server) handleScanStatus(w http.ResponseWriter, _ *http.Request) {
	scanning := false
	if s.scanner != nil {
		scanning = s.scanner.Scanning()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scanning": scanning,
		"devices":  s.registry.Len(),
	})
}

// handleStartScan clears the registry and starts the scan cycle. The cycle
// outlives the request and runs until POST /scan/stop or shutdown.
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeUnavailable(w, "bluetooth adapter is unavailable")
		return
	}
	if err := s.scanner.StartScan(s.baseCtx); err != nil {
		s.logger.Warn("scan start failed", "error", err)
		s.record(r.Context(), audit.ActionScanStart, "", "failed", map[string]any{"error": err.Error()})
		writeUnavailable(w, "bluetooth adapter is unavailable")
		return
	}
	s.record(r.Context(), audit.ActionScanStart, "", "started", nil)
	writeJSON(w, http.StatusAccepted, map[string]any{"scanning": true})
}

// handleStopScan ends the scan cycle. Stopping an idle scanner is not an error.
func (s *Server) handleStopScan(w http.ResponseWriter, r *http.Request) {
	if s.scanner != nil {
		s.scanner.StopScan()
		s.record(r.Context(), audit.ActionScanStop, "", "stopped", map[string]any{"devices": s.registry.Len()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scanning": false,
		"devices":  s.registry.Len(),
	})
}

// handleBlinkAll blinks every ready node. An empty body uses the default
// duration without a trigger.
func (s *Server) handleBlinkAll(w http.ResponseWriter, r *http.Request) {
	var req BlinkRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	written := s.control.BlinkAll(r.Context(), req.Duration, req.Trigger)
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": written,
	})
}

// handleTrigger sends the external trigger on its own.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	sent := s.control.Trigger(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"sent": sent,
	})
}

// record journals an operator command handled directly by the API. Failures
// are logged and never change the response.
func (s *Server) record(ctx context.Context, action audit.Action, target, outcome string, details map[string]any) {
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
