package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/route"
)

// ExecuteRequest is the optional body of POST /routes/{name}/execute.
type ExecuteRequest struct {
	// Trigger notifies the external controller before the route runs.
	Trigger bool `json:"trigger"`

	// Async returns 202 immediately and runs the route in the background.
	Async bool `json:"async"`
}

// BlinkRequest is the optional body of POST /blink.
type BlinkRequest struct {
	Duration uint16 `json:"duration"`
	Trigger  bool   `json:"trigger"`
}

// routeView is a route definition plus its hop count.
type routeView struct {
	route.Definition
	Hops int `json:"hops"`
}

// handleListRoutes returns the route table in configuration order.
func (s *Server) handleListRoutes(w http.ResponseWriter, _ *http.Request) {
	defs := s.routes.List()
	views := make([]routeView, 0, len(defs))
	for _, d := range defs {
		views = append(views, routeView{Definition: d, Hops: d.HopCount()})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"routes": views,
		"count":  len(views),
	})
}

// handleGetRoute returns one route definition together with the hops it
// expands to.
func (s *Server) handleGetRoute(w http.ResponseWriter, r *http.Request) {
	name, ok := routeName(w, r)
	if !ok {
		return
	}

	def, found := s.routes.Get(name)
	if !found {
		writeNotFound(w, "route not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"route": routeView{Definition: def, Hops: def.HopCount()},
		"hops":  route.BuildHops(def),
	})
}

// handleExecuteRoute runs a route.
//
// By default the request waits for the execution and returns its record.
// With "async": true it answers 202 and the result arrives as a
// route.executed event.
func (s *Server) handleExecuteRoute(w http.ResponseWriter, r *http.Request) {
	name, ok := routeName(w, r)
	if !ok {
		return
	}

	var req ExecuteRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if _, found := s.routes.Get(name); !found {
		writeNotFound(w, "route not found")
		return
	}

	if req.Async {
		ctx := s.baseCtx
		s.control.Go(func() {
			if _, err := s.control.RunRoute(ctx, name, req.Trigger); err != nil {
				s.logger.Error("async route execution failed", "route", name, "error", err)
			}
		})
		writeJSON(w, http.StatusAccepted, map[string]any{
			"route":  name,
			"status": "accepted",
		})
		return
	}

	exec, err := s.control.RunRoute(r.Context(), name, req.Trigger)
	if err != nil {
		if errors.Is(err, route.ErrRouteNotFound) {
			writeNotFound(w, "route not found")
			return
		}
		s.logger.Error("route execution failed", "route", name, "error", err)
		writeInternalError(w, "route execution failed")
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

// handleListExecutions returns recent executions, newest first.
// Query parameters: route (filter), limit.
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeUnavailable(w, "execution history is unavailable")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	execs, err := s.repo.ListExecutions(r.Context(), r.URL.Query().Get("route"), limit)
	if err != nil {
		s.logger.Error("listing executions failed", "error", err)
		writeInternalError(w, "failed to list executions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"executions": execs,
		"count":      len(execs),
	})
}

// handleGetExecution returns one execution record.
func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeUnavailable(w, "execution history is unavailable")
		return
	}

	exec, err := s.repo.GetExecution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, route.ErrExecutionNotFound) {
			writeNotFound(w, "execution not found")
			return
		}
		s.logger.Error("getting execution failed", "error", err)
		writeInternalError(w, "failed to get execution")
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

// routeName extracts and unescapes the {name} parameter. Route names carry
// arrows and other non-ASCII text, so clients percent-encode them.
func routeName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		writeBadRequest(w, "invalid route name")
		return "", false
	}
	return name, true
}

// decodeOptionalJSON decodes the request body into v. An empty body leaves v
// at its zero value.
func decodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
