package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/nandhiniannika/online-voting/internal/frames"
	"github.com/nandhiniannika/online-voting/internal/verification"
)

// OpenerFactory returns the frame opener for a source name.
// An empty name selects the configured default.
type OpenerFactory func(source string) (frames.Opener, error)

// VerifyRequest starts a camera verification.
type VerifyRequest struct {
	IdentityKey string `json:"identity_key"`
	Source      string `json:"source,omitempty"` // local or stream
}

// VerifyHandler handles blocking verification endpoints.
type VerifyHandler struct {
	verifier *verification.Verifier
	openers  OpenerFactory
}

// NewVerifyHandler creates a new verify handler.
func NewVerifyHandler(verifier *verification.Verifier, openers OpenerFactory) *VerifyHandler {
	return &VerifyHandler{verifier: verifier, openers: openers}
}

// Verify handles POST /verify. The session runs for the configured window and
// is cancelled when the client disconnects.
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	opener, err := h.openers(req.Source)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	verdict, err := h.verifier.Verify(r.Context(), req.IdentityKey, opener, nil)
	if err != nil {
		log.Printf("verify %q failed: %v", sanitizeForLog(req.IdentityKey), err)
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, verdict)
}

// VerifyImage handles POST /verify/image with multipart fields identity_key and image.
func (h *VerifyHandler) VerifyImage(w http.ResponseWriter, r *http.Request) {
	img, err := readImageUpload(w, r)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	key := r.FormValue("identity_key")

	verdict, err := h.verifier.VerifyImage(r.Context(), key, img)
	if err != nil {
		log.Printf("image verify %q failed: %v", sanitizeForLog(key), err)
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, verdict)
}
