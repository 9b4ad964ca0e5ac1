package frames

import (
	"bytes"
	"errors"
	"io"
)

// ErrFrameTooLarge is returned when no end-of-image marker arrives within the size limit.
var ErrFrameTooLarge = errors.New("mjpeg frame exceeds size limit")

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

const scanChunkSize = 32 << 10

// MJPEGScanner splits a motion-JPEG byte stream into individual JPEG images by
// locating start-of-image and end-of-image markers. Markers may be split
// across reads; bytes outside a frame (multipart boundaries, headers) are skipped.
type MJPEGScanner struct {
	r        io.Reader
	buf      []byte
	chunk    []byte
	maxFrame int
	readErr  error
}

// NewMJPEGScanner creates a scanner. maxFrame bounds a single frame in bytes.
func NewMJPEGScanner(r io.Reader, maxFrame int) *MJPEGScanner {
	return &MJPEGScanner{
		r:        r,
		chunk:    make([]byte, scanChunkSize),
		maxFrame: maxFrame,
	}
}

// Next returns the next complete JPEG. At the end of the stream it returns
// io.EOF and an incomplete trailing frame is discarded. After ErrFrameTooLarge
// scanning may continue.
func (s *MJPEGScanner) Next() ([]byte, error) {
	for {
		if frame, err := s.extract(); frame != nil || err != nil {
			return frame, err
		}
		if s.readErr != nil {
			return nil, s.readErr
		}

		n, err := s.r.Read(s.chunk)
		s.buf = append(s.buf, s.chunk[:n]...)
		if err != nil {
			s.readErr = err
		}
	}
}

// extract returns a frame from the buffer if one is complete.
func (s *MJPEGScanner) extract() ([]byte, error) {
	start := bytes.Index(s.buf, jpegSOI)
	if start < 0 {
		// Keep a trailing 0xFF: it may begin a marker split across reads.
		if n := len(s.buf); n > 0 && s.buf[n-1] == 0xFF {
			s.buf = append(s.buf[:0], 0xFF)
		} else {
			s.buf = s.buf[:0]
		}
		return nil, nil
	}
	if start > 0 {
		s.buf = append(s.buf[:0], s.buf[start:]...)
	}

	end := bytes.Index(s.buf[len(jpegSOI):], jpegEOI)
	if end < 0 {
		if len(s.buf) > s.maxFrame {
			// Drop the oversized frame but keep scanning for the next SOI.
			s.buf = s.buf[:0]
			return nil, ErrFrameTooLarge
		}
		return nil, nil
	}

	n := len(jpegSOI) + end + len(jpegEOI)
	frame := make([]byte, n)
	copy(frame, s.buf[:n])
	s.buf = append(s.buf[:0], s.buf[n:]...)
	return frame, nil
}
