package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xolan/hark/internal/capture"
	"github.com/xolan/hark/internal/service"
)

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a voice note and transcribe it",
	Long: `Record a voice note from the default microphone, transcribe it, and save it.

While recording:
  Enter        Stop and transcribe
  q, Enter     Cancel without saving
  Ctrl-C       Cancel without saving

Once transcription has started it cannot be cancelled. If transcription fails
the recording is discarded and nothing is saved.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		recordEntry(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)
}

// recordEntry runs one capture session from the terminal
func recordEntry(ctx context.Context) {
	services, release, ok := openJournal()
	if !ok {
		return
	}
	defer release()
	j := services.Journal

	ctx, stop := deps.Interrupt(ctx)
	defer stop()

	s, err := j.StartRecording(ctx)
	if err != nil {
		fail("Failed to start recording", err)
		return
	}
	_, _ = fmt.Fprintf(deps.Stdout, "Recording (%s). Press Enter to stop, q then Enter to cancel.\n", s.MimeType())

	quit := make(chan struct{})
	defer close(quit)
	input := readLines(quit)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case line, ok := <-input:
			if ok && strings.EqualFold(strings.TrimSpace(line), "q") {
				cancelRecording(j)
				return
			}
			finishRecording(ctx, j, s)
			return
		case <-ctx.Done():
			cancelRecording(j)
			return
		case <-s.Done():
			// The device ended the session on its own.
			finishRecording(ctx, j, s)
			return
		case <-ticker.C:
			_, _ = fmt.Fprintf(deps.Stdout, "\r  %ds", s.ElapsedSeconds())
		}
	}
}

// readLines forwards lines from stdin until EOF or quit.
func readLines(quit <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(deps.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-quit:
				return
			}
		}
	}()
	return lines
}

func cancelRecording(j *service.Journal) {
	if err := j.CancelRecording(); err != nil {
		fail("Failed to cancel recording", err)
		return
	}
	_, _ = fmt.Fprintln(deps.Stdout, "\nRecording cancelled")
}

// finishRecording stops s if it is still recording, then transcribes and
// saves. An interrupt no longer cancels anything at this point.
func finishRecording(ctx context.Context, j *service.Journal, s *capture.Session) {
	ctx = context.WithoutCancel(ctx)
	if err := s.Stop(); err != nil {
		fail("Failed to stop recording", err)
		return
	}
	_, _ = fmt.Fprintln(deps.Stdout, "\nTranscribing...")

	e, err := j.Finish(ctx, s)
	if err != nil {
		fail("Recording was not saved", err)
		return
	}

	_, _ = fmt.Fprintf(deps.Stdout, "Saved: %s\n", formatEntryLine(e))
}
