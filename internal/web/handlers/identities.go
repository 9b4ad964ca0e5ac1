package handlers

import (
	"log"
	"net/http"

	"github.com/nandhiniannika/online-voting/internal/database"
	"github.com/nandhiniannika/online-voting/internal/enrollment"
)

// IdentitiesHandler handles enrollment and identity listing.
type IdentitiesHandler struct {
	enroller *enrollment.Enroller
	store    *database.IdentityStore
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(enroller *enrollment.Enroller, store *database.IdentityStore) *IdentitiesHandler {
	return &IdentitiesHandler{enroller: enroller, store: store}
}

// IdentitySummary is one enrolled key with its record count.
type IdentitySummary struct {
	IdentityKey string `json:"identity_key"`
	Records     int    `json:"records"`
}

// IdentityListResponse lists enrolled keys in first-enrollment order.
type IdentityListResponse struct {
	Identities   []IdentitySummary `json:"identities"`
	TotalRecords int               `json:"total_records"`
	Dimension    int               `json:"dimension"`
	Backend      string            `json:"backend"`
}

// Enroll handles POST /identities with multipart fields identity_key and image.
func (h *IdentitiesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	img, err := readImageUpload(w, r)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	key := r.FormValue("identity_key")

	res, err := h.enroller.Enroll(r.Context(), key, img)
	if err != nil {
		log.Printf("enroll %q failed: %v", sanitizeForLog(key), err)
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// List handles GET /identities.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	counts := snap.KeyCounts()

	resp := IdentityListResponse{
		Identities:   []IdentitySummary{},
		TotalRecords: snap.Len(),
		Dimension:    snap.Dim(),
		Backend:      h.store.BackendName(),
	}
	seen := make(map[string]bool, len(counts))
	for _, key := range snap.Keys() {
		if seen[key] {
			continue
		}
		seen[key] = true
		resp.Identities = append(resp.Identities, IdentitySummary{IdentityKey: key, Records: counts[key]})
	}
	respondJSON(w, http.StatusOK, resp)
}
