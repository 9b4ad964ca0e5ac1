//go:build dlib

package embedding

import (
	"context"
	"fmt"
	"image"
	"sync"

	face "github.com/Kagami/go-face"

	"github.com/nandhiniannika/online-voting/internal/imaging"
)

// DlibProvider runs dlib's face detector and 128-d ResNet descriptor in process.
type DlibProvider struct {
	mu  sync.Mutex // the recognizer is not safe for concurrent use
	rec *face.Recognizer
}

// NewDlibProvider loads the dlib models from modelsDir.
func NewDlibProvider(modelsDir string) (*DlibProvider, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("loading dlib models from %s: %w", modelsDir, err)
	}
	return &DlibProvider{rec: rec}, nil
}

// Detect encodes img as JPEG and runs recognition on it.
func (p *DlibProvider) Detect(ctx context.Context, img image.Image) ([]Face, error) {
	data, err := imaging.EncodeJPEG(img)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	found, err := p.rec.Recognize(data)
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib recognize: %w", err)
	}

	origin := img.Bounds().Min
	faces := make([]Face, 0, len(found))
	for _, f := range found {
		emb := make([]float32, len(f.Descriptor))
		copy(emb, f.Descriptor[:])
		faces = append(faces, Face{BBox: f.Rectangle.Add(origin), Embedding: emb})
	}
	return faces, nil
}

// Close releases the native recognizer.
func (p *DlibProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rec.Close()
	return nil
}
