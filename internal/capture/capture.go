// Package capture records a single audio note from an input device.
//
// A Session moves through Idle, Requesting, Recording and Stopping before
// ending in exactly one of Finalized, Cancelled or Failed. Whatever the path,
// the device stream and the elapsed-time ticker are released exactly once when
// the session reaches its terminal state.
package capture

import (
	"context"
	"errors"
)

// Capture errors
var (
	// ErrCaptureUnavailable indicates the device could not be opened or refused to record.
	ErrCaptureUnavailable = errors.New("audio capture unavailable")

	// ErrSessionActive indicates a new session was requested while another is still running.
	ErrSessionActive = errors.New("a recording session is already active")

	// ErrInvalidState indicates an operation that is not valid in the session's current state.
	ErrInvalidState = errors.New("invalid session state")

	// ErrCancelled is returned by Start when the session is cancelled while the device is being opened.
	ErrCancelled = errors.New("capture cancelled")

	// ErrStreamClosed indicates the device stopped delivering audio before a stop was requested.
	ErrStreamClosed = errors.New("audio stream closed unexpectedly")

	// ErrFlushTimeout indicates the device did not deliver its final data in time after a stop.
	ErrFlushTimeout = errors.New("timed out waiting for recorder to flush")
)

// PreferredMimeTypes is the encoding preference list, best first.
var PreferredMimeTypes = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/ogg;codecs=opus",
	"audio/mp4",
	"audio/mpeg",
}

// Device hands out audio streams. Opening may prompt for permission or block
// until hardware is available; it should honor ctx.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Chunk is a piece of encoded audio, or the error that ended the stream.
type Chunk struct {
	Data []byte
	Err  error
}

// Stream is an opened input device.
type Stream interface {
	// IsTypeSupported reports whether the stream can encode to mimeType.
	IsTypeSupported(mimeType string) bool

	// DefaultMimeType is the encoding used when no preference is supported.
	DefaultMimeType() string

	// Start begins recording in the given encoding. Chunks arrive in order on
	// the returned channel, which is closed once the stream has flushed.
	Start(mimeType string) (<-chan Chunk, error)

	// Flush asks the stream to deliver any buffered data and close its channel.
	Flush() error

	// Close releases the device. It must be safe to call on a stream that
	// never started.
	Close() error
}

// Audio is a finished recording. Data is the concatenation of all chunks in
// arrival order.
type Audio struct {
	Data     []byte
	MimeType string
}

// Result is delivered once per session when it reaches a terminal state.
// Exactly one of Audio, Cancelled or Err is set.
type Result struct {
	Audio     *Audio
	Cancelled bool
	Err       error
}

// Negotiate picks the first preferred encoding the stream supports, falling
// back to the stream's default.
func Negotiate(stream Stream, preferred []string) string {
	for _, mime := range preferred {
		if stream.IsTypeSupported(mime) {
			return mime
		}
	}
	return stream.DefaultMimeType()
}
