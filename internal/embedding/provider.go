// Package embedding is the boundary to face detection and embedding generation.
// Implementations detect faces in an image and return one embedding per face.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/nandhiniannika/online-voting/internal/config"
)

var (
	// ErrProviderUnavailable wraps transport failures talking to a provider.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrNoFaceDetected is returned by callers that require at least one face.
	ErrNoFaceDetected = errors.New("no face detected")
)

// Face is one detected face. BBox is in the coordinates of the image passed to Detect.
type Face struct {
	BBox      image.Rectangle
	Embedding []float32
	Score     float64 // detector confidence, 0 when the provider does not report one
}

// Provider detects faces and computes their embeddings.
// Faces are returned in provider order; an image without faces yields an empty slice.
type Provider interface {
	Detect(ctx context.Context, img image.Image) ([]Face, error)
}

// New builds the provider selected by configuration.
func New(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderHTTP, "":
		return NewClient(cfg.URL), nil
	case config.ProviderDlib:
		p, err := NewDlibProvider(cfg.ModelsDir)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
