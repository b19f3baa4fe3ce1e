package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"github.com/xolan/hark/internal/bucket"
	"github.com/xolan/hark/internal/capture"
	"github.com/xolan/hark/internal/entry"
	"github.com/xolan/hark/internal/storage"
)

// Journal errors
var (
	ErrBusy          = errors.New("transcription in progress")
	ErrNoRecording   = errors.New("no recording in progress")
	ErrRecordingLost = errors.New("recording ended without audio")
	ErrEmptyPrefix   = errors.New("entry id prefix cannot be empty")
	ErrAmbiguousID   = errors.New("entry id prefix matches more than one entry")
)

// Transcriber turns captured audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Journal ties capture, transcription and storage together. It is safe for
// concurrent use, but only one recording is in flight at a time.
type Journal struct {
	store       storage.Store
	recorder    *capture.Recorder
	transcriber Transcriber
	clock       clock.Clock
	location    *time.Location
	log         logrus.FieldLogger

	mu   sync.Mutex
	busy bool
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithClock sets the clock used to stamp entries and compute day keys.
func WithClock(clk clock.Clock) JournalOption {
	return func(j *Journal) { j.clock = clk }
}

// WithLocation sets the timezone used for day keys.
func WithLocation(loc *time.Location) JournalOption {
	return func(j *Journal) {
		if loc != nil {
			j.location = loc
		}
	}
}

// WithLogger sets the journal logger.
func WithLogger(log logrus.FieldLogger) JournalOption {
	return func(j *Journal) { j.log = log }
}

// NewJournal creates a Journal. recorder and transcriber may be nil when
// only text entries are needed.
func NewJournal(store storage.Store, recorder *capture.Recorder, transcriber Transcriber, opts ...JournalOption) *Journal {
	j := &Journal{
		store:       store,
		recorder:    recorder,
		transcriber: transcriber,
		clock:       clock.New(),
		location:    time.Local,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Now returns the current time in the journal's timezone.
func (j *Journal) Now() time.Time {
	return j.clock.Now().In(j.location)
}

// AddText stores a typed entry.
func (j *Journal) AddText(ctx context.Context, content string) (entry.Entry, error) {
	e, err := entry.NewText(content, j.Now())
	if err != nil {
		return entry.Entry{}, err
	}
	if err := j.store.Insert(ctx, e); err != nil {
		return entry.Entry{}, err
	}
	j.log.WithField("id", e.ID).Info("text entry added")
	return e, nil
}

// StartRecording begins a capture session.
func (j *Journal) StartRecording(ctx context.Context) (*capture.Session, error) {
	if j.recorder == nil {
		return nil, fmt.Errorf("%w: no audio device configured", capture.ErrCaptureUnavailable)
	}
	if j.Busy() {
		return nil, ErrBusy
	}
	if j.recorder.Active() {
		return nil, capture.ErrSessionActive
	}
	return j.recorder.Start(ctx)
}

// Recording returns the session in progress, or nil.
func (j *Journal) Recording() *capture.Session {
	if j.recorder == nil {
		return nil
	}
	s := j.recorder.Current()
	if s == nil || s.State().IsTerminal() {
		return nil
	}
	return s
}

// StopRecording stops the current session, transcribes the audio and stores
// the resulting entry. If transcription fails the audio is discarded and no
// entry is created.
func (j *Journal) StopRecording(ctx context.Context) (entry.Entry, error) {
	s := j.Recording()
	if s == nil {
		return entry.Entry{}, ErrNoRecording
	}
	if err := s.Stop(); err != nil {
		return entry.Entry{}, err
	}
	return j.Finish(ctx, s)
}

// Finish waits for s to end, then transcribes and stores its audio. It is
// used directly when the session ended without StopRecording, for example
// after a device failure.
func (j *Journal) Finish(ctx context.Context, s *capture.Session) (entry.Entry, error) {
	// A stopped session goes on to transcription, so the journal is busy
	// from here rather than from the end of the flush.
	if st := s.State(); st == capture.StateStopping || st == capture.StateFinalized {
		j.setBusy(true)
		defer j.setBusy(false)
	}

	res, err := s.Wait(ctx)
	if err != nil {
		return entry.Entry{}, err
	}
	switch {
	case res.Cancelled:
		return entry.Entry{}, capture.ErrCancelled
	case res.Err != nil:
		return entry.Entry{}, res.Err
	case res.Audio == nil:
		return entry.Entry{}, ErrRecordingLost
	}

	if j.transcriber == nil {
		return entry.Entry{}, errors.New("no transcriber configured")
	}

	text, err := j.transcriber.Transcribe(ctx, res.Audio.Data, res.Audio.MimeType)
	if err != nil {
		j.log.WithError(err).WithField("session", s.ID()).Warn("transcription failed, audio discarded")
		return entry.Entry{}, err
	}

	e := entry.NewAudio(text, res.Audio.Data, res.Audio.MimeType, j.Now())
	if err := j.store.Insert(ctx, e); err != nil {
		return entry.Entry{}, err
	}
	j.log.WithFields(logrus.Fields{
		"id":      e.ID,
		"session": s.ID(),
		"bytes":   len(res.Audio.Data),
	}).Info("audio entry added")
	return e, nil
}

// CancelRecording abandons the current session. Once transcription has
// started it fails with ErrBusy.
func (j *Journal) CancelRecording() error {
	if j.Busy() {
		return ErrBusy
	}
	s := j.Recording()
	if s == nil {
		return ErrNoRecording
	}
	return s.Cancel()
}

// Busy reports whether a stopped recording is being flushed, transcribed or
// stored.
func (j *Journal) Busy() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.busy
}

func (j *Journal) setBusy(busy bool) {
	j.mu.Lock()
	j.busy = busy
	j.mu.Unlock()
}

// List returns every entry, newest first.
func (j *Journal) List(ctx context.Context) ([]entry.Entry, error) {
	return j.store.List(ctx)
}

// Grouped returns every entry bucketed by day relative to now.
func (j *Journal) Grouped(ctx context.Context) ([]bucket.Group, error) {
	entries, err := j.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return bucket.Bucket(entries, j.Now()), nil
}

// Get returns the entry with the given id.
func (j *Journal) Get(ctx context.Context, id string) (entry.Entry, error) {
	return j.store.Get(ctx, id)
}

// Delete removes the entry with the given id.
func (j *Journal) Delete(ctx context.Context, id string) error {
	if err := j.store.Delete(ctx, id); err != nil {
		return err
	}
	j.log.WithField("id", id).Info("entry deleted")
	return nil
}

// Resolve finds the single entry whose id starts with prefix.
func (j *Journal) Resolve(ctx context.Context, prefix string) (entry.Entry, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return entry.Entry{}, ErrEmptyPrefix
	}
	entries, err := j.store.List(ctx)
	if err != nil {
		return entry.Entry{}, err
	}

	var matches []entry.Entry
	for _, e := range entries {
		if e.ID == prefix {
			return e, nil
		}
		if strings.HasPrefix(e.ID, prefix) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return entry.Entry{}, fmt.Errorf("%w: %s", storage.ErrNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return entry.Entry{}, fmt.Errorf("%w: %s (%d matches)", ErrAmbiguousID, prefix, len(matches))
	}
}

// Health reports the state of the underlying store.
func (j *Journal) Health(ctx context.Context) (storage.Health, error) {
	return j.store.Health(ctx)
}

// Close releases the store. A recording in progress is cancelled first.
func (j *Journal) Close() error {
	if s := j.Recording(); s != nil {
		_ = s.Cancel()
	}
	return j.store.Close()
}
