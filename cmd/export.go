package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
	"github.com/xolan/hark/internal/entry"
	"gopkg.in/yaml.v3"
)

// exportCmd represents the export parent command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export journal entries to various formats",
	Long: `Export journal entries for programmatic use, backup, or migration.

Available formats:
  json    Export entries as JSON
  yaml    Export entries as YAML

Audio is left out unless --with-audio is given; it is then included as base64.

Examples:
  hark export json                       Export all entries as JSON
  hark export json > journal.json        Export to file
  hark export yaml --with-audio          Export as YAML including recordings`,
}

// exportJSONCmd represents the export json command
var exportJSONCmd = &cobra.Command{
	Use:   "json",
	Short: "Export journal entries as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		withAudio, _ := cmd.Flags().GetBool("with-audio")
		exportEntries(cmd.Context(), formatJSON, withAudio)
	},
}

// exportYAMLCmd represents the export yaml command
var exportYAMLCmd = &cobra.Command{
	Use:   "yaml",
	Short: "Export journal entries as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		withAudio, _ := cmd.Flags().GetBool("with-audio")
		exportEntries(cmd.Context(), formatYAML, withAudio)
	},
}

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportJSONCmd)
	exportCmd.AddCommand(exportYAMLCmd)

	exportCmd.PersistentFlags().Bool("with-audio", false, "Include recordings as base64")
}

// exportedEntry is the interchange form of an entry.
type exportedEntry struct {
	ID         string    `json:"id" yaml:"id"`
	Kind       string    `json:"kind" yaml:"kind"`
	Content    string    `json:"content" yaml:"content"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	MimeType   string    `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	AudioBytes int       `json:"audio_bytes,omitempty" yaml:"audio_bytes,omitempty"`
	Audio      string    `json:"audio,omitempty" yaml:"audio,omitempty"`
}

type exportMetadata struct {
	ExportTimestamp time.Time `json:"export_timestamp" yaml:"export_timestamp"`
	TotalEntries    int       `json:"total_entries" yaml:"total_entries"`
	WithAudio       bool      `json:"with_audio" yaml:"with_audio"`
}

type exportDocument struct {
	Metadata exportMetadata  `json:"metadata" yaml:"metadata"`
	Entries  []exportedEntry `json:"entries" yaml:"entries"`
}

func toExported(e entry.Entry, withAudio bool) exportedEntry {
	x := exportedEntry{
		ID:        e.ID,
		Kind:      string(e.Kind),
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
	}
	if e.Attachment != nil {
		x.MimeType = e.Attachment.MimeType
		x.AudioBytes = len(e.Attachment.Data)
		if withAudio {
			x.Audio = base64.StdEncoding.EncodeToString(e.Attachment.Data)
		}
	}
	return x
}

func buildExport(entries []entry.Entry, withAudio bool, now time.Time) exportDocument {
	doc := exportDocument{
		Metadata: exportMetadata{
			ExportTimestamp: now,
			TotalEntries:    len(entries),
			WithAudio:       withAudio,
		},
		Entries: make([]exportedEntry, 0, len(entries)),
	}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, toExported(e, withAudio))
	}
	return doc
}

// exportEntries writes every entry, newest first, in the given format
func exportEntries(ctx context.Context, format string, withAudio bool) {
	services, release, ok := openJournal()
	if !ok {
		return
	}
	defer release()

	entries, err := services.Journal.List(ctx)
	if err != nil {
		fail("Failed to read entries", err)
		return
	}
	doc := buildExport(entries, withAudio, services.Journal.Now())

	switch format {
	case formatYAML:
		encoder := yaml.NewEncoder(deps.Stdout)
		encoder.SetIndent(2)
		if err := encoder.Encode(doc); err != nil {
			fail("Failed to encode YAML output", err)
			return
		}
		if err := encoder.Close(); err != nil {
			fail("Failed to encode YAML output", err)
			return
		}
	default:
		encoder := json.NewEncoder(deps.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(doc); err != nil {
			fail("Failed to encode JSON output", err)
			return
		}
	}
}
