// Package entry defines the journal entry and the invariants every stored
// entry must satisfy.
package entry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind tells whether an entry was typed or dictated.
type Kind string

const (
	KindText  Kind = "text"
	KindAudio Kind = "audio"
)

// Validation errors
var (
	ErrEmptyContent = errors.New("text entry content cannot be empty")
	ErrInvalidEntry = errors.New("invalid entry")
)

// Attachment is the audio payload bound to an audio entry, tagged with its
// encoding. The bytes are opaque; nothing downstream transcodes them.
type Attachment struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mime_type"`
}

// Entry represents a single journal record
type Entry struct {
	ID         string      `json:"id"`
	Kind       Kind        `json:"kind"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewText creates a text entry stamped with createdAt.
// Content is trimmed and must not be empty.
func NewText(content string, createdAt time.Time) (Entry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Entry{}, ErrEmptyContent
	}
	return Entry{
		ID:        NewID(),
		Kind:      KindText,
		Content:   content,
		CreatedAt: truncate(createdAt),
	}, nil
}

// NewAudio creates an audio entry from a transcript and the captured bytes.
// An empty transcript is valid: the recording was silent or unintelligible.
func NewAudio(transcript string, data []byte, mimeType string, createdAt time.Time) Entry {
	return Entry{
		ID:      NewID(),
		Kind:    KindAudio,
		Content: strings.TrimSpace(transcript),
		Attachment: &Attachment{
			Data:     data,
			MimeType: mimeType,
		},
		CreatedAt: truncate(createdAt),
	}
}

// NewID returns a fresh globally unique entry id.
func NewID() string {
	return uuid.NewString()
}

// Validate checks the structural invariants shared by every backend.
func (e Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEntry)
	}
	if e.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing creation time", ErrInvalidEntry)
	}
	switch e.Kind {
	case KindText:
		if e.Attachment != nil {
			return fmt.Errorf("%w: text entry %s carries an attachment", ErrInvalidEntry, e.ID)
		}
	case KindAudio:
		if e.Attachment == nil {
			return fmt.Errorf("%w: audio entry %s has no attachment", ErrInvalidEntry, e.ID)
		}
		if e.Attachment.MimeType == "" {
			return fmt.Errorf("%w: audio entry %s has no mime type", ErrInvalidEntry, e.ID)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, e.Kind)
	}
	return nil
}

// ShortID returns the first eight characters of the id, enough to address an
// entry from the command line.
func (e Entry) ShortID() string {
	if len(e.ID) <= 8 {
		return e.ID
	}
	return e.ID[:8]
}

// CreatedAtMillis returns the creation time as the persisted integer form.
func (e Entry) CreatedAtMillis() int64 {
	return e.CreatedAt.UnixMilli()
}

// FromMillis converts a persisted creation time back to local time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// truncate drops sub-millisecond precision so that the persisted form
// round-trips exactly.
func truncate(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).In(t.Location())
}
