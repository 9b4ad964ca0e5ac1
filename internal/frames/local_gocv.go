//go:build gocv

package frames

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// LocalOpener opens a capture device through OpenCV.
type LocalOpener struct {
	Device int
	Width  int
	Height int
}

type captureResult struct {
	capture *gocv.VideoCapture
	err     error
}

// Open opens the device. Opening may block inside OpenCV, so it runs in a
// goroutine and a late device is closed once it finally opens.
func (o *LocalOpener) Open(ctx context.Context) (Source, error) {
	opened := make(chan captureResult, 1)
	go func() {
		c, err := gocv.OpenVideoCapture(o.Device)
		opened <- captureResult{capture: c, err: err}
	}()

	var capture *gocv.VideoCapture
	select {
	case r := <-opened:
		if r.err != nil {
			return nil, fmt.Errorf("%w: opening device %d: %w", ErrSourceUnavailable, o.Device, r.err)
		}
		capture = r.capture
	case <-ctx.Done():
		go func() {
			if r := <-opened; r.capture != nil {
				r.capture.Close()
			}
		}()
		return nil, fmt.Errorf("%w: opening device %d: %w", ErrSourceUnavailable, o.Device, ctx.Err())
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: device %d is busy or missing", ErrSourceUnavailable, o.Device)
	}
	if o.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(o.Width))
	}
	if o.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(o.Height))
	}

	produce := func(done <-chan struct{}, emit func(image.Image) bool) error {
		mat := gocv.NewMat()
		defer mat.Close()
		for {
			select {
			case <-done:
				return nil
			default:
			}
			if ok := capture.Read(&mat); !ok || mat.Empty() {
				return fmt.Errorf("%w: device %d", ErrFrameRead, o.Device)
			}
			img, err := mat.ToImage()
			if err != nil {
				return fmt.Errorf("%w: converting frame: %w", ErrFrameRead, err)
			}
			if !emit(img) {
				return nil
			}
		}
	}

	// The capture is released only after the producer stopped reading from it.
	return startSource(produce, nil, capture.Close), nil
}
