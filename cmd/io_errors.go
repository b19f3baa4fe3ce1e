package cmd

import (
	"errors"
	"fmt"

	"github.com/xolan/hark/internal/capture"
	"github.com/xolan/hark/internal/config"
	"github.com/xolan/hark/internal/service"
	"github.com/xolan/hark/internal/storage"
	"github.com/xolan/hark/internal/transcribe"
)

// fail prints an error with details and a hint, then exits with status 1.
func fail(message string, err error) {
	_, _ = fmt.Fprintf(deps.Stderr, "Error: %s\n", message)
	if err != nil {
		_, _ = fmt.Fprintf(deps.Stderr, "Details: %v\n", err)
	}
	if hint := hintFor(err); hint != "" {
		_, _ = fmt.Fprintf(deps.Stderr, "Hint: %s\n", hint)
	}
	deps.Exit(1)
}

// hintFor suggests a fix for the known error classes.
func hintFor(err error) string {
	var terr *transcribe.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, transcribe.ErrConfiguration):
		return fmt.Sprintf("Set %s in your environment or in a .env file", config.DefaultAPIKeyEnv)
	case errors.As(err, &terr) && terr.Kind == transcribe.KindTimeout:
		return "The transcription service did not answer in time; try again or raise transcription.timeout"
	case errors.Is(err, transcribe.ErrTranscription):
		return "The recording was discarded; check your network and API key, then record again"
	case errors.Is(err, capture.ErrCaptureUnavailable):
		return "Check that the capture command (ffmpeg by default) is installed and a microphone is available"
	case errors.Is(err, service.ErrAmbiguousID):
		return "Use more characters of the entry id"
	case errors.Is(err, storage.ErrNotFound):
		return "List entries with 'hark list' to see ids"
	case errors.Is(err, storage.ErrStorage):
		return "Run 'hark validate' to check the journal"
	default:
		return ""
	}
}

// openJournal opens the services or exits. The returned function must be
// called when done.
func openJournal() (*service.Services, func(), bool) {
	services, release, err := deps.Services()
	if err != nil {
		fail("Failed to open journal", err)
		return nil, nil, false
	}
	return services, release, true
}

func formatCorruptionWarning(warning storage.ParseWarning) string {
	// Truncate content if too long (max 50 chars)
	content := warning.Content
	if len(content) > 50 {
		content = content[:47] + "..."
	}
	return fmt.Sprintf("  Line %d: %s (error: %s)", warning.LineNumber, content, warning.Error)
}
