package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/lmikkelsen/submerge/internal/batch"
	"github.com/lmikkelsen/submerge/internal/browse"
	"github.com/lmikkelsen/submerge/internal/mux"
	"github.com/lmikkelsen/submerge/internal/pairlist"
)

// Handler provides HTTP API handlers. It is the single owner of the two pair
// lists: every access goes through its mutex, and a batch run receives
// copies of the paths rather than the lists themselves.
type Handler struct {
	browser *browse.Browser
	runner  *batch.Runner
	merger  *mux.Merger

	mu        sync.Mutex
	videos    *pairlist.List
	subtitles *pairlist.List
}

// NewHandler creates a new API handler with empty pair lists.
func NewHandler(browser *browse.Browser, runner *batch.Runner, merger *mux.Merger) *Handler {
	return &Handler{
		browser:   browser,
		runner:    runner,
		merger:    merger,
		videos:    pairlist.New(),
		subtitles: pairlist.New(),
	}
}

// response helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Browse handles GET /api/browse?path=...
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result, err := h.browser.Browse(ctx, path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Tools handles GET /api/tools. The UI warns before a run when a required
// tool is missing; the run itself reports the same condition per pair.
func (h *Handler) Tools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.merger.Tools())
}

// listView is the JSON shape of one pair list.
type listView struct {
	Names    []string `json:"names"`
	Paths    []string `json:"paths"`
	Selected int      `json:"selected"`
}

func viewOf(l *pairlist.List) listView {
	return listView{Names: l.Names(), Paths: l.Paths(), Selected: l.Selected()}
}

// listFor maps the {kind} path segment to a list. Callers hold h.mu.
func (h *Handler) listFor(kind string) *pairlist.List {
	switch kind {
	case "videos":
		return h.videos
	case "subtitles":
		return h.subtitles
	default:
		return nil
	}
}

// Lists handles GET /api/lists.
func (h *Handler) Lists(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := map[string]listView{
		"videos":    viewOf(h.videos),
		"subtitles": viewOf(h.subtitles),
	}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// AppendRequest is the request body for appending a list entry.
type AppendRequest struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
}

// Append handles POST /api/lists/{kind}.
func (h *Handler) Append(w http.ResponseWriter, r *http.Request) {
	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path required")
		return
	}
	if req.Name == "" {
		req.Name = filepath.Base(req.Path)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.listFor(r.PathValue("kind"))
	if list == nil {
		writeError(w, http.StatusNotFound, "unknown list")
		return
	}
	list.Append(req.Name, req.Path)
	writeJSON(w, http.StatusOK, viewOf(list))
}

// SelectRequest is the request body for moving a list cursor.
type SelectRequest struct {
	Index int `json:"index"`
}

// Select handles POST /api/lists/{kind}/select.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.listFor(r.PathValue("kind"))
	if list == nil {
		writeError(w, http.StatusNotFound, "unknown list")
		return
	}
	list.Select(req.Index)
	writeJSON(w, http.StatusOK, viewOf(list))
}

// MoveUp handles POST /api/lists/{kind}/move-up.
func (h *Handler) MoveUp(w http.ResponseWriter, r *http.Request) {
	h.moveSelected(w, r, (*pairlist.List).MoveUp)
}

// MoveDown handles POST /api/lists/{kind}/move-down.
func (h *Handler) MoveDown(w http.ResponseWriter, r *http.Request) {
	h.moveSelected(w, r, (*pairlist.List).MoveDown)
}

func (h *Handler) moveSelected(w http.ResponseWriter, r *http.Request, move func(*pairlist.List)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.listFor(r.PathValue("kind"))
	if list == nil {
		writeError(w, http.StatusNotFound, "unknown list")
		return
	}
	move(list)
	writeJSON(w, http.StatusOK, viewOf(list))
}

// RemoveSelected handles DELETE /api/lists/{kind}/selected.
func (h *Handler) RemoveSelected(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.listFor(r.PathValue("kind"))
	if list == nil {
		writeError(w, http.StatusNotFound, "unknown list")
		return
	}
	removed, ok := list.RemoveSelected()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"removed": removed,
		"ok":      ok,
		"list":    viewOf(list),
	})
}

// ResetLists handles POST /api/lists/reset. Both lists are replaced
// wholesale, matching the UI returning to its main screen.
func (h *Handler) ResetLists(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.videos = pairlist.New()
	h.subtitles = pairlist.New()
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// SubmitRun handles POST /api/runs. By default the request blocks until the
// whole batch has finished and returns the completed run; with ?wait=false
// it returns 202 and the run id immediately.
func (h *Handler) SubmitRun(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	videos := h.videos.Paths()
	subtitles := h.subtitles.Paths()
	h.mu.Unlock()

	future, err := h.runner.Submit(videos, subtitles)
	switch {
	case errors.Is(err, batch.ErrSizeMismatch):
		writeError(w, http.StatusBadRequest, batch.MismatchLine)
		return
	case errors.Is(err, batch.ErrRunActive):
		writeError(w, http.StatusConflict, "a run is already active")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if r.URL.Query().Get("wait") == "false" {
		run := h.runner.Get(future.RunID())
		writeJSON(w, http.StatusAccepted, map[string]string{"id": run.ID, "status": string(run.Status)})
		return
	}

	run, err := future.Wait(r.Context())
	if err != nil {
		// The client went away; the run keeps going and lands in history
		writeError(w, http.StatusRequestTimeout, fmt.Sprintf("wait interrupted: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListRuns handles GET /api/runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  h.runner.GetAll(),
		"stats": h.runner.Stats(),
	})
}

// GetRun handles GET /api/runs/{id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "run ID required")
		return
	}

	run := h.runner.Get(id)
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// ClearRuns handles POST /api/runs/clear.
func (h *Handler) ClearRuns(w http.ResponseWriter, r *http.Request) {
	count := h.runner.Clear()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cleared": count,
		"message": fmt.Sprintf("Cleared %d runs", count),
	})
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runner.Stats())
}
