package server

import (
	"encoding/json"
	"net/http"

	"github.com/desertthunder/edjs/internal/models"
)

// StateSource provides the current authoritative state.
type StateSource interface {
	State() models.AuthState
}

// StateHandler serves the current state as JSON on /state.
type StateHandler struct {
	source StateSource
}

func NewStateHandler(source StateSource) *StateHandler {
	return &StateHandler{source: source}
}

func (h *StateHandler) Routes() []string {
	return []string{"/state"}
}

func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(h.source.State().Normalize()); err != nil {
		http.Error(w, "Failed to encode state", http.StatusInternalServerError)
	}
}
