package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
)

// listJSON prints the journal as a JSON array, without audio.
func listJSON(ctx context.Context) {
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
	out := make([]exportedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, toExported(e, false))
	}

	encoder := json.NewEncoder(deps.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		fail("Failed to encode JSON output", err)
	}
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries grouped by day",
	Long: `List journal entries, newest first, grouped under Today, Yesterday, or the date.

Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			listJSON(cmd.Context())
			return
		}
		listEntries(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("json", false, "Output entries as JSON")
}
