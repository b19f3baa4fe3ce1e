package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xolan/hark/internal/entry"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS entries_created_at ON entries(created_at DESC, seq DESC);

	CREATE TABLE IF NOT EXISTS attachments (
		entry_id TEXT PRIMARY KEY REFERENCES entries(id) ON DELETE CASCADE,
		mime_type TEXT NOT NULL,
		data BLOB NOT NULL
	);
`

// SQLiteStore keeps entries in a SQLite database. Attachments live in their
// own table and are written in the same transaction as the entry row.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  logrus.FieldLogger
}

// OpenSQLite opens the database at path with WAL and foreign keys enabled,
// creating the schema if needed.
func OpenSQLite(path string, log logrus.FieldLogger) (*SQLiteStore, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, storageErr("open", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("open", fmt.Errorf("open database: %w", err))
	}
	// A single connection keeps writes serialized and makes :memory: usable.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, storageErr("open", fmt.Errorf("ping database: %w", err))
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, storageErr("open", fmt.Errorf("create schema: %w", err))
	}

	log.WithField("path", path).Debug("opened sqlite store")
	return &SQLiteStore{db: db, path: path, log: log}, nil
}

// Insert writes the entry row and its attachment in one transaction.
func (s *SQLiteStore) Insert(ctx context.Context, e entry.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("insert", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM entries WHERE id = ?`, e.ID).Scan(&exists)
	if err != nil {
		return storageErr("insert", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (id, kind, content, created_at) VALUES (?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.Content, e.CreatedAtMillis())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
		return storageErr("insert", err)
	}

	if e.Attachment != nil {
		data := e.Attachment.Data
		if data == nil {
			data = []byte{}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attachments (entry_id, mime_type, data) VALUES (?, ?, ?)`,
			e.ID, e.Attachment.MimeType, data)
		if err != nil {
			return storageErr("insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("insert", err)
	}
	s.log.WithFields(logrus.Fields{"id": e.ID, "kind": e.Kind}).Debug("inserted entry")
	return nil
}

const selectEntries = `
	SELECT e.id, e.kind, e.content, e.created_at, a.mime_type, a.data
	FROM entries e
	LEFT JOIN attachments a ON a.entry_id = e.id
`

// Get returns the entry with the given id. A row that is not a valid entry
// is treated as missing, as List skips it.
func (s *SQLiteStore) Get(ctx context.Context, id string) (entry.Entry, error) {
	row := s.db.QueryRowContext(ctx, selectEntries+` WHERE e.id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entry.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return entry.Entry{}, storageErr("get", err)
	}
	if err := e.Validate(); err != nil {
		s.log.WithError(err).WithField("id", id).Warn("skipping invalid entry")
		return entry.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// List returns all valid entries, most recent first. Rows breaking the entry
// invariants are skipped; Health counts them.
func (s *SQLiteStore) List(ctx context.Context) ([]entry.Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntries+` ORDER BY e.created_at DESC, e.seq DESC`)
	if err != nil {
		return nil, storageErr("list", fmt.Errorf("query entries: %w", err))
	}
	defer func() { _ = rows.Close() }()

	entries := []entry.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storageErr("list", fmt.Errorf("scan entry: %w", err))
		}
		if err := e.Validate(); err != nil {
			s.log.WithError(err).WithField("id", e.ID).Warn("skipping invalid entry")
			continue
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", err)
	}
	return entries, nil
}

// Delete removes the entry and its attachment.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("delete", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attachments WHERE entry_id = ?`, id); err != nil {
		return storageErr("delete", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("delete", err)
	}
	s.log.WithField("id", id).Debug("deleted entry")
	return nil
}

// Health runs an integrity check and counts readable entries.
func (s *SQLiteStore) Health(ctx context.Context) (Health, error) {
	health := Health{
		Backend:  BackendSQLite,
		Path:     s.path,
		Warnings: []ParseWarning{},
	}

	rows, err := s.db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return health, storageErr("health", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return health, storageErr("health", err)
		}
		if msg != "ok" {
			health.Problems = append(health.Problems, msg)
		}
	}
	if err := rows.Err(); err != nil {
		return health, storageErr("health", err)
	}

	var orphans int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM entries e
		LEFT JOIN attachments a ON a.entry_id = e.id
		WHERE (e.kind = 'audio') != (a.entry_id IS NOT NULL)
	`).Scan(&orphans)
	if err != nil {
		return health, storageErr("health", err)
	}
	health.CorruptedEntries = orphans

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM entries`).Scan(&total); err != nil {
		return health, storageErr("health", err)
	}
	health.ValidEntries = total - orphans
	return health, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (entry.Entry, error) {
	var (
		e         entry.Entry
		kind      string
		createdAt int64
		mimeType  sql.NullString
		data      []byte
	)
	if err := row.Scan(&e.ID, &kind, &e.Content, &createdAt, &mimeType, &data); err != nil {
		return entry.Entry{}, err
	}
	e.Kind = entry.Kind(kind)
	e.CreatedAt = entry.FromMillis(createdAt)
	if mimeType.Valid {
		if data == nil {
			data = []byte{}
		}
		e.Attachment = &entry.Attachment{Data: data, MimeType: mimeType.String}
	}
	return e, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
