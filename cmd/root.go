package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xolan/hark/internal/bucket"
	"github.com/xolan/hark/internal/entry"
	"github.com/xolan/hark/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "hark",
	Short: "A voice and text journal",
	Long: `hark keeps a journal of short typed or spoken notes.

Usage:
  hark <text>                       Add a text entry (e.g., hark buy milk)
  hark                              List entries grouped by day
  hark record                       Record a voice note and transcribe it
  hark list --json                  List entries as JSON
  hark delete <id>                  Delete an entry (with confirmation)
  hark export json|yaml             Export the journal
  hark validate                     Check journal health
  hark config                       Show configuration
  hark tui                          Launch the interactive UI

Voice notes are transcribed by a remote service. Set HARK_API_KEY in your
environment or in a .env file before recording.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if CheckTUIFlag(cmd) {
			return
		}
		if len(args) == 0 {
			listEntries(cmd.Context())
			return
		}

		addEntry(cmd.Context(), args)
	},
}

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check journal health",
	Long: `Validate the journal and report on its health, including corrupted entries.

For the jsonl backend every line is parsed; for the sqlite backend the database
integrity check is run.`,
	Run: func(cmd *cobra.Command, args []string) {
		validateStorage(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(deleteCmd)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(version, commit, date string) {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(
		"hark version {{.Version}}\n" +
			"commit: " + commit + "\n" +
			"built: " + date + "\n",
	)
}

// Execute runs the root command
func Execute() error {
	rootCmd.SetOut(deps.Stdout)
	rootCmd.SetErr(deps.Stderr)
	rootCmd.SetIn(deps.Stdin)
	return rootCmd.ExecuteContext(context.Background())
}

// addEntry stores the joined arguments as a text entry
func addEntry(ctx context.Context, args []string) {
	content := strings.TrimSpace(strings.Join(args, " "))
	if content == "" {
		_, _ = fmt.Fprintln(deps.Stderr, "Error: Entry text cannot be empty")
		_, _ = fmt.Fprintln(deps.Stderr, "Usage: hark <text>")
		deps.Exit(1)
		return
	}

	services, release, ok := openJournal()
	if !ok {
		return
	}
	defer release()

	e, err := services.Journal.AddText(ctx, content)
	if err != nil {
		fail("Failed to save entry", err)
		return
	}

	_, _ = fmt.Fprintf(deps.Stdout, "Saved: %s\n", formatEntryLine(e))
}

// listEntries prints the journal grouped by day
func listEntries(ctx context.Context) {
	services, release, ok := openJournal()
	if !ok {
		return
	}
	defer release()

	groups, err := services.Journal.Grouped(ctx)
	if err != nil {
		fail("Failed to read entries", err)
		return
	}
	if health, err := services.Journal.Health(ctx); err == nil {
		healthWarnings(health.Warnings)
	}
	printGroups(groups)
}

func printGroups(groups []bucket.Group) {
	if len(groups) == 0 {
		_, _ = fmt.Fprintln(deps.Stdout, "No entries yet")
		_, _ = fmt.Fprintln(deps.Stdout, "Add one with 'hark <text>' or 'hark record'")
		return
	}

	for i, g := range groups {
		if i > 0 {
			_, _ = fmt.Fprintln(deps.Stdout)
		}
		_, _ = fmt.Fprintln(deps.Stdout, g.Key)
		_, _ = fmt.Fprintln(deps.Stdout, strings.Repeat("-", 50))
		for _, e := range g.Entries {
			_, _ = fmt.Fprintln(deps.Stdout, formatEntryLine(e))
		}
	}
}

// formatEntryLine renders "id  HH:MM  [audio]  content".
func formatEntryLine(e entry.Entry) string {
	content := e.Content
	if content == "" {
		content = "(no speech detected)"
	}
	marker := "       "
	if e.Kind == entry.KindAudio {
		marker = "[audio]"
	}
	return fmt.Sprintf("%s  %s  %s  %s", e.ShortID(), e.CreatedAt.Format("15:04"), marker, content)
}

// validateStorage checks the journal health and reports status
func validateStorage(ctx context.Context) {
	services, release, ok := openJournal()
	if !ok {
		return
	}
	defer release()

	health, err := services.Journal.Health(ctx)
	if err != nil {
		fail("Failed to validate storage", err)
		return
	}

	_, _ = fmt.Fprintf(deps.Stdout, "Storage: %s (%s)\n", health.Path, health.Backend)
	_, _ = fmt.Fprintln(deps.Stdout, strings.Repeat("=", 50))
	_, _ = fmt.Fprintf(deps.Stdout, "Valid entries:     %d\n", health.ValidEntries)
	_, _ = fmt.Fprintf(deps.Stdout, "Corrupted entries: %d\n", health.CorruptedEntries)

	if len(health.Warnings) > 0 {
		_, _ = fmt.Fprintln(deps.Stdout, strings.Repeat("=", 50))
		_, _ = fmt.Fprintln(deps.Stdout, "Corrupted lines:")
		for _, warning := range health.Warnings {
			_, _ = fmt.Fprintln(deps.Stdout, formatCorruptionWarning(warning))
		}
	}
	if len(health.Problems) > 0 {
		_, _ = fmt.Fprintln(deps.Stdout, strings.Repeat("=", 50))
		_, _ = fmt.Fprintln(deps.Stdout, "Problems:")
		for _, p := range health.Problems {
			_, _ = fmt.Fprintf(deps.Stdout, "  %s\n", p)
		}
	}

	_, _ = fmt.Fprintln(deps.Stdout, strings.Repeat("=", 50))
	if health.OK() {
		_, _ = fmt.Fprintln(deps.Stdout, "Status: ✓ Journal is healthy")
		return
	}
	_, _ = fmt.Fprintf(deps.Stderr, "Status: ⚠ Journal has %d corrupted %s\n",
		health.CorruptedEntries+len(health.Problems),
		pluralize("record", health.CorruptedEntries+len(health.Problems)))
	deps.Exit(1)
}

// pluralize returns the singular or plural form of a word based on count
func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}

// healthWarnings reports lines the jsonl backend skipped.
func healthWarnings(warnings []storage.ParseWarning) {
	if len(warnings) == 0 {
		return
	}
	_, _ = fmt.Fprintf(deps.Stderr, "Warning: Found %d corrupted line(s) in storage file:\n", len(warnings))
	for _, warning := range warnings {
		_, _ = fmt.Fprintln(deps.Stderr, formatCorruptionWarning(warning))
	}
	_, _ = fmt.Fprintln(deps.Stderr)
}
