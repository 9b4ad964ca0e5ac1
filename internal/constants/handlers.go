// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for session event channels
	EventChannelBuffer = 100

	// SSEHeartbeatInterval is the idle time after which an event stream gets a keepalive comment
	SSEHeartbeatInterval = 15 * time.Second

	// TerminalEventTimeout bounds how long a completed/failed/cancelled event waits on a full listener
	TerminalEventTimeout = time.Second
)

// Session job constants
const (
	// FinishedSessionTTL is how long finished async sessions stay queryable
	FinishedSessionTTL = 10 * time.Minute

	// MaxConcurrentSessions caps async sessions running at once
	MaxConcurrentSessions = 4
)

// File upload constants
const (
	// MaxUploadSize is the maximum file upload size in bytes (20MB)
	MaxUploadSize = 20 << 20
)
