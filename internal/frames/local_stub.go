//go:build !gocv

package frames

import (
	"context"
	"fmt"
)

// LocalOpener opens a capture device. This build has no OpenCV support.
type LocalOpener struct {
	Device int
	Width  int
	Height int
}

// Open always fails; build with -tags gocv for local capture.
func (o *LocalOpener) Open(context.Context) (Source, error) {
	return nil, fmt.Errorf("%w: local capture requires building with -tags gocv", ErrSourceUnavailable)
}
