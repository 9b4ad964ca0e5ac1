// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultDistanceThreshold is the default maximum Euclidean distance for a face match.
	// A probe matches only when its distance is strictly below this value.
	DefaultDistanceThreshold = 0.5
)

// Verification session constants
const (
	// DefaultSessionWindow is how long a verification session collects frames
	DefaultSessionWindow = 5 * time.Second

	// DefaultAcquireTimeout bounds opening the camera or connecting to the stream
	DefaultAcquireTimeout = 3 * time.Second

	// MaxSessionWindow is the longest verification window; longer SESSION_WINDOW values fail validation
	MaxSessionWindow = 30 * time.Second
)

// Image processing constants
const (
	// JPEGQuality is used when re-encoding frames for the embedding server
	JPEGQuality = 85

	// MaxImageSize is the maximum dimension (width or height) sent to the embedding server
	MaxImageSize = 1920

	// MaxMJPEGFrameSize bounds a single reassembled MJPEG frame (8MB)
	MaxMJPEGFrameSize = 8 << 20
)
