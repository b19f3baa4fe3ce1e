package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xolan/hark/internal/entry"
)

// record is the persisted form of an entry, one per line.
type record struct {
	ID         string            `json:"id"`
	Kind       entry.Kind        `json:"kind"`
	Content    string            `json:"content"`
	Attachment *entry.Attachment `json:"attachment,omitempty"`
	CreatedAt  int64             `json:"created_at"`
}

func toRecord(e entry.Entry) record {
	return record{
		ID:         e.ID,
		Kind:       e.Kind,
		Content:    e.Content,
		Attachment: e.Attachment,
		CreatedAt:  e.CreatedAtMillis(),
	}
}

func (r record) toEntry() entry.Entry {
	return entry.Entry{
		ID:         r.ID,
		Kind:       r.Kind,
		Content:    r.Content,
		Attachment: r.Attachment,
		CreatedAt:  entry.FromMillis(r.CreatedAt),
	}
}

// ReadResult contains the results of reading entries from storage,
// including both successfully parsed entries and any warnings about
// corrupted or malformed lines.
type ReadResult struct {
	Entries  []entry.Entry  // Successfully parsed entries, in file order
	Warnings []ParseWarning // Warnings about corrupted lines
}

// line is one physical line of the file. Corrupted lines are kept verbatim so
// that rewrites never silently drop data.
type line struct {
	num   int
	raw   string
	entry *entry.Entry
}

// JSONLStore keeps entries in a JSON Lines file. Attachment bytes are stored
// base64-encoded inside the record.
type JSONLStore struct {
	path string
	log  logrus.FieldLogger
	mu   sync.Mutex
}

// OpenJSONL opens (or lazily creates) a JSON Lines store at path.
func OpenJSONL(path string, log logrus.FieldLogger) (*JSONLStore, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if _, err := os.Stat(path); err != nil && !os.IsNotExist(err) {
		return nil, storageErr("open", err)
	}
	log.WithField("path", path).Debug("opened jsonl store")
	return &JSONLStore{path: path, log: log}, nil
}

// Insert appends the entry by rewriting the file atomically.
func (s *JSONLStore) Insert(ctx context.Context, e entry.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := readLines(s.path)
	if err != nil {
		return storageErr("insert", err)
	}
	for _, l := range lines {
		if l.entry != nil && l.entry.ID == e.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
	}

	data, err := json.Marshal(toRecord(e))
	if err != nil {
		return storageErr("insert", err)
	}
	lines = append(lines, line{raw: string(data)})

	if err := writeLinesAtomic(s.path, lines); err != nil {
		return storageErr("insert", err)
	}
	s.log.WithFields(logrus.Fields{"id": e.ID, "kind": e.Kind}).Debug("inserted entry")
	return nil
}

// Get returns the entry with the given id.
func (s *JSONLStore) Get(ctx context.Context, id string) (entry.Entry, error) {
	if err := ctx.Err(); err != nil {
		return entry.Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := readLines(s.path)
	if err != nil {
		return entry.Entry{}, storageErr("get", err)
	}
	for _, l := range lines {
		if l.entry != nil && l.entry.ID == id {
			return *l.entry, nil
		}
	}
	return entry.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns all readable entries, most recent first. Corrupted lines are
// skipped; use Health to report them.
func (s *JSONLStore) List(ctx context.Context) ([]entry.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := ReadWithWarnings(s.path)
	if err != nil {
		return nil, storageErr("list", err)
	}
	sortNewestFirst(result.Entries)
	return result.Entries, nil
}

// Delete removes the entry by rewriting the file without it.
func (s *JSONLStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := readLines(s.path)
	if err != nil {
		return storageErr("delete", err)
	}

	kept := make([]line, 0, len(lines))
	found := false
	for _, l := range lines {
		if l.entry != nil && l.entry.ID == id {
			found = true
			continue
		}
		kept = append(kept, l)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := writeLinesAtomic(s.path, kept); err != nil {
		return storageErr("delete", err)
	}
	s.log.WithField("id", id).Debug("deleted entry")
	return nil
}

// Health analyzes the storage file and reports valid and corrupted lines.
func (s *JSONLStore) Health(ctx context.Context) (Health, error) {
	health := Health{
		Backend:  BackendJSONL,
		Path:     s.path,
		Warnings: []ParseWarning{},
	}
	if err := ctx.Err(); err != nil {
		return health, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := ReadWithWarnings(s.path)
	if err != nil {
		return health, storageErr("health", err)
	}

	health.ValidEntries = len(result.Entries)
	health.CorruptedEntries = len(result.Warnings)
	health.Warnings = result.Warnings
	return health, nil
}

// Close is a no-op; the file is only held open during an operation.
func (s *JSONLStore) Close() error {
	return nil
}

// ReadWithWarnings reads all entries from the JSON Lines storage file
// and returns both successfully parsed entries and warnings about any corrupted lines.
// Returns an empty ReadResult if the file doesn't exist.
func ReadWithWarnings(path string) (ReadResult, error) {
	result := ReadResult{
		Entries:  []entry.Entry{},
		Warnings: []ParseWarning{},
	}

	lines, err := readLines(path)
	if err != nil {
		return result, err
	}

	for _, l := range lines {
		if l.entry == nil {
			result.Warnings = append(result.Warnings, ParseWarning{
				LineNumber: l.num,
				Content:    l.raw,
				Error:      parseLine(l.raw).Error(),
			})
			continue
		}
		result.Entries = append(result.Entries, *l.entry)
	}
	return result, nil
}

func readLines(path string) ([]line, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var lines []line
	scanner := bufio.NewScanner(file)
	// Audio attachments make lines far longer than the scanner default.
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		raw := scanner.Text()
		if raw == "" {
			continue
		}
		l := line{num: lineNumber, raw: raw}
		var r record
		if err := json.Unmarshal([]byte(raw), &r); err == nil {
			e := r.toEntry()
			if e.Validate() == nil {
				l.entry = &e
			}
		}
		lines = append(lines, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// parseLine returns the reason a line could not be read as an entry.
func parseLine(raw string) error {
	var r record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return err
	}
	if err := r.toEntry().Validate(); err != nil {
		return err
	}
	return nil
}

const maxLineSize = 256 * 1024 * 1024
