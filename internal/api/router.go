package api

import (
	"net/http"
)

// registerAPIRoutes registers all API endpoints on the given mux
func registerAPIRoutes(mux *http.ServeMux, h *Handler) {
	// Browsing and tool discovery
	mux.HandleFunc("GET /api/browse", h.Browse)
	mux.HandleFunc("GET /api/tools", h.Tools)

	// Pair lists
	mux.HandleFunc("GET /api/lists", h.Lists)
	mux.HandleFunc("POST /api/lists/reset", h.ResetLists)
	mux.HandleFunc("POST /api/lists/{kind}", h.Append)
	mux.HandleFunc("POST /api/lists/{kind}/select", h.Select)
	mux.HandleFunc("POST /api/lists/{kind}/move-up", h.MoveUp)
	mux.HandleFunc("POST /api/lists/{kind}/move-down", h.MoveDown)
	mux.HandleFunc("DELETE /api/lists/{kind}/selected", h.RemoveSelected)

	// Runs
	mux.HandleFunc("POST /api/runs", h.SubmitRun)
	mux.HandleFunc("GET /api/runs", h.ListRuns)
	mux.HandleFunc("GET /api/runs/stream", h.RunStream)
	mux.HandleFunc("POST /api/runs/clear", h.ClearRuns)
	mux.HandleFunc("GET /api/runs/{id}", h.GetRun)

	// Misc
	mux.HandleFunc("GET /api/stats", h.Stats)
}

// NewRouter creates a new HTTP router with all API endpoints
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	registerAPIRoutes(mux, h)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("submerge API\n"))
	})

	return mux
}
