// Package storage persists journal entries, including their audio attachments,
// across process restarts.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/xolan/hark/internal/app"
	"github.com/xolan/hark/internal/entry"
)

// Supported backends
const (
	BackendSQLite = "sqlite"
	BackendJSONL  = "jsonl"
)

const (
	// SQLiteFile is the default database file name
	SQLiteFile = "journal.db"
	// EntriesFile is the name of the JSON Lines storage file
	EntriesFile = "entries.jsonl"
)

// Storage errors
var (
	// ErrStorage marks failures of the underlying medium; the operation may be retried.
	ErrStorage = errors.New("storage failure")

	// ErrNotFound indicates the entry id does not exist (or is already gone).
	ErrNotFound = errors.New("entry not found")

	// ErrDuplicateID indicates an insert reused an existing id.
	ErrDuplicateID = errors.New("entry id already exists")

	// ErrUnknownBackend indicates a backend name that is not supported.
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// Error wraps a medium failure with the operation that hit it.
type Error struct {
	Op  string // Operation that failed (e.g., "insert", "list")
	Err error  // Underlying error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the ErrStorage marker and the cause.
func (e *Error) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

func storageErr(op string, err error) error {
	return &Error{Op: op, Err: err}
}

// Store is a durable mapping from entry id to entry.
type Store interface {
	// Insert writes the entry and its attachment as one durable unit.
	Insert(ctx context.Context, e entry.Entry) error

	// Get returns a single entry by id.
	Get(ctx context.Context, id string) (entry.Entry, error)

	// List returns every entry, most recent first; ties are broken by
	// insertion order with the later insert first.
	List(ctx context.Context) ([]entry.Entry, error)

	// Delete removes the entry and its attachment.
	Delete(ctx context.Context, id string) error

	// Health reports on the state of the underlying medium.
	Health(ctx context.Context) (Health, error)

	Close() error
}

// ParseWarning represents a warning about a corrupted or malformed record
type ParseWarning struct {
	LineNumber int    // Line number in the file (1-indexed)
	Content    string // Raw content of the corrupted line
	Error      string // Description of the parsing error
}

// Health contains information about the health status of the storage medium.
type Health struct {
	Backend          string
	Path             string
	ValidEntries     int            // Number of readable entries
	CorruptedEntries int            // Number of unreadable records
	Warnings         []ParseWarning // Detailed information about each corrupted record
	Problems         []string       // Backend-level integrity problems
}

// OK reports whether the medium looked healthy.
func (h Health) OK() bool {
	return h.CorruptedEntries == 0 && len(h.Problems) == 0
}

// Open opens the named backend at path. An empty path selects the default
// location inside the application directory.
func Open(backend, path string, log logrus.FieldLogger) (Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if path == "" {
		var err error
		path, err = GetStoragePath(backend)
		if err != nil {
			return nil, err
		}
	}

	switch backend {
	case BackendSQLite, "":
		return OpenSQLite(path, log)
	case BackendJSONL:
		return OpenJSONL(path, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// GetStoragePath returns the default storage location for the backend.
// Creates the application directory if it doesn't exist.
func GetStoragePath(backend string) (string, error) {
	switch backend {
	case BackendSQLite, "":
		return app.Path(SQLiteFile)
	case BackendJSONL:
		return app.Path(EntriesFile)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// sortNewestFirst orders entries by creation time descending. The input must be
// in insertion order; later inserts win ties.
func sortNewestFirst(entries []entry.Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}
