//go:build !dlib

package embedding

import (
	"context"
	"errors"
	"image"
)

// ErrDlibUnsupported is returned when the binary was built without the dlib tag.
var ErrDlibUnsupported = errors.New("dlib provider requires building with -tags dlib")

// DlibProvider is unavailable in this build.
type DlibProvider struct{}

// NewDlibProvider always fails without the dlib build tag.
func NewDlibProvider(string) (*DlibProvider, error) {
	return nil, ErrDlibUnsupported
}

// Detect always fails without the dlib build tag.
func (p *DlibProvider) Detect(context.Context, image.Image) ([]Face, error) {
	return nil, ErrDlibUnsupported
}

// Close is a no-op.
func (p *DlibProvider) Close() error {
	return nil
}
