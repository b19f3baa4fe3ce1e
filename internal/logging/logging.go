// Package logging builds the application logger. Output goes to a file
// because the terminal belongs to the CLI and the TUI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options configures New.
type Options struct {
	Level string // trace, debug, info, warn or error; empty means info
	File  string // empty discards output
}

// New returns a text-formatted logger writing to opts.File, and a function
// that closes the file. The parent directory is created if needed.
func New(opts Options) (*logrus.Logger, func() error, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.AddHook(SecretsFilter{})

	level := logrus.InfoLevel
	if opts.Level != "" {
		var err error
		level, err = logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	log.SetLevel(level)

	if opts.File == "" {
		log.SetOutput(io.Discard)
		return log, func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
	}
	log.SetOutput(f)
	return log, f.Close, nil
}

// SecretsFilter blanks fields whose names suggest a credential.
type SecretsFilter struct{}

func (SecretsFilter) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (SecretsFilter) Fire(e *logrus.Entry) error {
	for k := range e.Data {
		if isSecretField(k) {
			e.Data[k] = "[redacted]"
		}
	}
	return nil
}

func isSecretField(name string) bool {
	name = strings.ToLower(name)
	for _, s := range []string{"key", "token", "secret", "password"} {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}
