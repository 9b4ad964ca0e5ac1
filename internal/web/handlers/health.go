package handlers

import (
	"net/http"

	"github.com/nandhiniannika/online-voting/internal/database"
)

// HealthHandler reports liveness and store size.
type HealthHandler struct {
	store *database.IdentityStore
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store *database.IdentityStore) *HealthHandler {
	return &HealthHandler{store: store}
}

// Get handles GET /health.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	snap := h.store.Snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"backend":   h.store.BackendName(),
		"records":   snap.Len(),
		"dimension": snap.Dim(),
	})
}
