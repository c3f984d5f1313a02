package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// Handler serves the agent HTTP API in serve mode.
type Handler struct {
	clusterName string
	version     string
	store       *Store
}

// NewHandler builds a Handler bound to the run-result store.
func NewHandler(clusterName, version string, store *Store) *Handler {
	return &Handler{clusterName: clusterName, version: version, store: store}
}

// Register wires all API endpoints on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/agent/v1/readyz", h.readyz)
	mux.HandleFunc("/agent/v1/overview", h.overview)
	mux.HandleFunc("/agent/v1/assessment", h.assessment)
	mux.HandleFunc("/agent/v1/snapshot", h.snapshot)
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.store.Latest(); !ok {
		http.Error(w, "no assessment yet", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	status := "initializing"
	timestamp := time.Now().UTC()
	score := -1
	source := ""
	if result, ok := h.store.Latest(); ok {
		status = "ok"
		timestamp = result.CompletedAt.UTC()
		score = result.Assessment.HealthScore
		source = string(result.Assessment.Source)
	}
	writeJSON(w, map[string]any{
		"status":      status,
		"clusterName": h.clusterName,
		"version":     h.version,
		"timestamp":   timestamp.Format(time.RFC3339Nano),
		"healthScore": score,
		"source":      source,
	})
}

func (h *Handler) assessment(w http.ResponseWriter, r *http.Request) {
	result, ok := h.store.Latest()
	if !ok {
		http.Error(w, "no assessment yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, result.Assessment)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	result, ok := h.store.Latest()
	if !ok {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, result.Snapshot)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
