package capture

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// DefaultFlushTimeout bounds how long a stopping session waits for the
// device to deliver its final chunk.
const DefaultFlushTimeout = 10 * time.Second

// Session is one recording from request to terminal state. Callers observe it
// through State and ElapsedSeconds and drive it with Stop and Cancel.
type Session struct {
	id           string
	device       Device
	clock        clock.Clock
	log          logrus.FieldLogger
	preferred    []string
	flushTimeout time.Duration

	mu              sync.Mutex
	state           State
	stream          Stream
	ticker          *clock.Ticker
	mimeType        string
	elapsed         int
	abortOpen       context.CancelFunc
	cancelRequested bool
	releaseErr      error

	stopCh     chan struct{}
	cancelCh   chan struct{}
	stopOnce   sync.Once
	cancelOnce sync.Once

	done     chan Result
	finished chan struct{}
	result   Result
}

func newSession(id string, device Device, clk clock.Clock, log logrus.FieldLogger, preferred []string, flushTimeout time.Duration) *Session {
	return &Session{
		id:           id,
		device:       device,
		clock:        clk,
		log:          log.WithField("session", id),
		preferred:    preferred,
		flushTimeout: flushTimeout,
		state:        StateIdle,
		stopCh:       make(chan struct{}),
		cancelCh:     make(chan struct{}),
		done:         make(chan Result, 1),
		finished:     make(chan struct{}),
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ElapsedSeconds returns the number of whole seconds spent recording.
func (s *Session) ElapsedSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// MimeType returns the negotiated encoding, or "" before recording starts.
func (s *Session) MimeType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mimeType
}

// released reports whether the session has ended and given the device back.
// The state turns terminal first; the stream is closed just after.
func (s *Session) released() bool {
	select {
	case <-s.finished:
		return true
	default:
		return false
	}
}

// Done delivers the session result once it reaches a terminal state.
// The channel yields exactly one value.
func (s *Session) Done() <-chan Result {
	return s.done
}

// Wait blocks until the session ends or ctx is done. It may be called any
// number of times and always returns the same result.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	select {
	case <-s.finished:
		return s.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Stop ends a recording and finalizes the audio. The result arrives on Done
// once the device has flushed. Stop while already stopping or after the
// session ended is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state.IsTerminal() || s.state == StateStopping {
		s.mu.Unlock()
		return nil
	}
	if s.state != StateRecording {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot stop while %s", ErrInvalidState, state)
	}
	s.transition(StateStopping)
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

// Cancel abandons the session without producing audio. It is valid while the
// device is being requested or while recording, and returns once resources
// have been released. Cancel after the session ended is a no-op.
func (s *Session) Cancel() error {
	s.mu.Lock()
	switch {
	case s.state.IsTerminal():
		s.mu.Unlock()
		return nil
	case s.state == StateRequesting:
		s.cancelRequested = true
		abort := s.abortOpen
		s.mu.Unlock()
		if abort != nil {
			abort()
		}
		<-s.finished
		return nil
	case s.state == StateRecording:
		s.mu.Unlock()
		s.cancelOnce.Do(func() { close(s.cancelCh) })
		<-s.finished
		return nil
	default:
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot cancel while %s", ErrInvalidState, state)
	}
}

// start opens the device and begins recording. On failure the session is
// already terminal when start returns.
func (s *Session) start(ctx context.Context) error {
	openCtx, abort := context.WithCancel(ctx)
	defer abort()

	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot start while %s", ErrInvalidState, state)
	}
	s.abortOpen = abort
	s.transition(StateRequesting)
	s.mu.Unlock()

	stream, err := s.device.Open(openCtx)

	s.mu.Lock()
	s.abortOpen = nil
	cancelled := s.cancelRequested
	if stream != nil {
		s.stream = stream
	}
	s.mu.Unlock()

	if cancelled {
		s.finish(StateCancelled, Result{Cancelled: true})
		return ErrCancelled
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
		s.finish(StateFailed, Result{Err: err})
		return err
	}

	mimeType := Negotiate(stream, s.preferred)
	chunks, err := stream.Start(mimeType)
	if err != nil {
		err = fmt.Errorf("%w: start recording: %w", ErrCaptureUnavailable, err)
		s.finish(StateFailed, Result{Err: err})
		return err
	}

	s.mu.Lock()
	if s.cancelRequested {
		s.mu.Unlock()
		s.finish(StateCancelled, Result{Cancelled: true})
		return ErrCancelled
	}
	s.mimeType = mimeType
	s.ticker = s.clock.Ticker(time.Second)
	s.transition(StateRecording)
	ticker := s.ticker
	s.mu.Unlock()

	s.log.WithField("mime_type", mimeType).Info("recording started")

	go s.run(stream, chunks, ticker)
	return nil
}

// run owns chunk accumulation and the elapsed-time tick until the session ends.
func (s *Session) run(stream Stream, chunks <-chan Chunk, ticker *clock.Ticker) {
	var (
		buf     bytes.Buffer
		stopCh  = s.stopCh
		timeout <-chan time.Time
	)

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if s.state == StateRecording {
				s.elapsed++
			}
			s.mu.Unlock()

		case <-stopCh:
			stopCh = nil
			if err := stream.Flush(); err != nil {
				s.addReleaseErr(fmt.Errorf("flush: %w", err))
			}
			timeout = s.clock.After(s.flushTimeout)

		case <-s.cancelCh:
			s.finish(StateCancelled, Result{Cancelled: true})
			return

		case <-timeout:
			s.finish(StateFailed, Result{Err: ErrFlushTimeout})
			return

		case c, ok := <-chunks:
			if !ok {
				if s.State() == StateStopping {
					data := make([]byte, buf.Len())
					copy(data, buf.Bytes())
					s.finish(StateFinalized, Result{Audio: &Audio{Data: data, MimeType: s.MimeType()}})
				} else {
					s.finish(StateFailed, Result{Err: ErrStreamClosed})
				}
				return
			}
			if c.Err != nil {
				s.finish(StateFailed, Result{Err: fmt.Errorf("recording: %w", c.Err)})
				return
			}
			buf.Write(c.Data)
		}
	}
}

// finish moves the session to a terminal state, releases the stream and
// ticker, and publishes the result. Only the first call has any effect.
func (s *Session) finish(to State, res Result) {
	s.mu.Lock()
	if s.state.IsTerminal() {
		s.mu.Unlock()
		return
	}
	s.transition(to)
	stream, ticker := s.stream, s.ticker
	s.stream, s.ticker = nil, nil
	releaseErr := s.releaseErr
	s.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
	}
	if stream != nil {
		if err := stream.Close(); err != nil {
			releaseErr = multierror.Append(releaseErr, fmt.Errorf("close: %w", err))
		}
	}
	if releaseErr != nil {
		s.log.WithError(releaseErr).Warn("error releasing audio device")
	}

	if res.Err != nil {
		s.log.WithError(res.Err).Warn("recording failed")
	}

	s.result = res
	s.done <- res
	close(s.finished)
}

func (s *Session) addReleaseErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseErr = multierror.Append(s.releaseErr, err)
}

// transition must be called with mu held.
func (s *Session) transition(to State) {
	s.log.WithFields(logrus.Fields{"from": s.state, "to": to}).Debug("capture state")
	s.state = to
}
