package frames

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"net/http"

	"github.com/nandhiniannika/online-voting/internal/constants"
)

// StreamOpener connects to an HTTP motion-JPEG feed such as
// multipart/x-mixed-replace camera endpoints.
type StreamOpener struct {
	URL      string
	Client   *http.Client
	MaxFrame int
}

// NewStreamOpener creates an opener for url.
func NewStreamOpener(url string) *StreamOpener {
	return &StreamOpener{
		URL:      url,
		Client:   &http.Client{},
		MaxFrame: constants.MaxMJPEGFrameSize,
	}
}

type connectResult struct {
	resp *http.Response
	err  error
}

// Open issues the GET and waits for response headers within ctx. The stream
// itself lives until Close, independent of ctx.
func (o *StreamOpener) Open(ctx context.Context) (Source, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, o.URL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	connected := make(chan connectResult, 1)
	go func() {
		resp, err := o.Client.Do(req) //nolint:bodyclose // closed by the source or below
		connected <- connectResult{resp: resp, err: err}
	}()

	var resp *http.Response
	select {
	case r := <-connected:
		if r.err != nil {
			cancel()
			return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, r.err)
		}
		resp = r.resp
	case <-ctx.Done():
		cancel()
		return nil, fmt.Errorf("%w: connecting to stream: %w", ErrSourceUnavailable, ctx.Err())
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: stream returned status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	maxFrame := o.MaxFrame
	if maxFrame <= 0 {
		maxFrame = constants.MaxMJPEGFrameSize
	}
	body := resp.Body

	produce := func(done <-chan struct{}, emit func(image.Image) bool) error {
		scanner := NewMJPEGScanner(body, maxFrame)
		for {
			data, err := scanner.Next()
			if errors.Is(err, ErrFrameTooLarge) {
				log.Printf("mjpeg stream: %v, skipping", err)
				continue
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				select {
				case <-done:
					return nil
				default:
				}
				return fmt.Errorf("%w: %w", ErrFrameRead, err)
			}

			img, err := jpeg.Decode(bytes.NewReader(data))
			if err != nil {
				log.Printf("mjpeg stream: skipping undecodable frame (%d bytes): %v", len(data), err)
				continue
			}
			if !emit(img) {
				return nil
			}
		}
	}

	return startSource(produce, cancel, body.Close), nil
}
