package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/nandhiniannika/online-voting/internal/constants"
	"github.com/nandhiniannika/online-voting/internal/database"
	"github.com/nandhiniannika/online-voting/internal/embedding"
	"github.com/nandhiniannika/online-voting/internal/facematch"
	"github.com/nandhiniannika/online-voting/internal/frames"
	"github.com/nandhiniannika/online-voting/internal/imaging"
	"github.com/nandhiniannika/online-voting/internal/verification"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// errBadUpload marks malformed multipart uploads.
var errBadUpload = errors.New("invalid upload")

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondEngineError maps engine errors to HTTP status codes.
func respondEngineError(w http.ResponseWriter, err error) {
	respondError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, embedding.ErrNoFaceDetected),
		errors.Is(err, database.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, database.ErrInvalidIdentityKey),
		errors.Is(err, imaging.ErrUndecodable),
		errors.Is(err, errBadUpload):
		return http.StatusBadRequest
	case errors.Is(err, facematch.ErrNoEnrolledIdentities),
		errors.Is(err, verification.ErrSessionAlreadyRun):
		return http.StatusConflict
	case errors.Is(err, frames.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, embedding.ErrProviderUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// readImageUpload parses a multipart form and decodes the "image" file.
func readImageUpload(w http.ResponseWriter, r *http.Request) (image.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, fmt.Errorf("%w: failed to parse multipart form", errBadUpload)
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("%w: image file is required", errBadUpload)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: reading upload: %w", errBadUpload, err)
	}
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	return img, nil
}
