package api

import (
	"net/http"
	"strconv"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/audit"
)

// handleListAudit returns journalled commands, newest first.
// Query parameters: action, source, target, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeUnavailable(w, "audit log is unavailable")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action: audit.Action(q.Get("action")),
		Source: audit.Source(q.Get("source")),
		Target: q.Get("target"),
	}

	var ok bool
	if filter.Limit, ok = queryInt(q.Get("limit"), 1); !ok {
		writeBadRequest(w, "limit must be a positive integer")
		return
	}
	if filter.Offset, ok = queryInt(q.Get("offset"), 0); !ok {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit log failed", "error", err)
		writeInternalError(w, "failed to list audit log")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// queryInt parses an optional integer parameter no smaller than lowest.
// An empty value yields zero.
func queryInt(raw string, lowest int) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lowest {
		return 0, false
	}
	return n, true
}
