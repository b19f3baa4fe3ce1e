package capture

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Recorder guards a device so that at most one session uses it at a time.
type Recorder struct {
	device       Device
	clock        clock.Clock
	log          logrus.FieldLogger
	preferred    []string
	flushTimeout time.Duration

	mu      sync.Mutex
	current *Session
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock sets the clock driving the elapsed-time tick and flush timeout.
func WithClock(clk clock.Clock) Option {
	return func(r *Recorder) { r.clock = clk }
}

// WithLogger sets the logger for session events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Recorder) { r.log = log }
}

// WithPreferredMimeTypes overrides the encoding preference list. An empty
// list keeps the default.
func WithPreferredMimeTypes(mimeTypes []string) Option {
	return func(r *Recorder) {
		if len(mimeTypes) > 0 {
			r.preferred = mimeTypes
		}
	}
}

// WithFlushTimeout bounds how long Stop waits for the device to flush.
func WithFlushTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.flushTimeout = d
		}
	}
}

// NewRecorder creates a Recorder for the given device.
func NewRecorder(device Device, opts ...Option) *Recorder {
	r := &Recorder{
		device:       device,
		clock:        clock.New(),
		log:          logrus.StandardLogger(),
		preferred:    PreferredMimeTypes,
		flushTimeout: DefaultFlushTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start opens the device and begins a new session. It fails with
// ErrSessionActive until the previous session has ended and released the
// device.
//
// The session is registered before the device is opened, so Current().Cancel()
// from another goroutine aborts a slow open. On error the returned session (if
// any) is already terminal.
func (r *Recorder) Start(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	if r.current != nil && !r.current.released() {
		r.mu.Unlock()
		return nil, ErrSessionActive
	}
	s := newSession(uuid.NewString()[:8], r.device, r.clock, r.log, r.preferred, r.flushTimeout)
	r.current = s
	r.mu.Unlock()

	if err := s.start(ctx); err != nil {
		return s, err
	}
	return s, nil
}

// Current returns the most recent session, or nil if none was started.
func (r *Recorder) Current() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Active reports whether a session still holds the device.
func (r *Recorder) Active() bool {
	s := r.Current()
	return s != nil && !s.released()
}
