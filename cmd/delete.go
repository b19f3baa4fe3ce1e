package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xolan/hark/internal/entry"
)

var yesFlag bool

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a journal entry by id",
	Long: `Delete a journal entry by its id.
The id may be shortened to any unambiguous prefix, such as the eight characters
shown in list output. A confirmation prompt will be shown unless --yes is specified.

Example:
  hark delete 3f2a9c1d
  hark delete 3f2a --yes`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeEntryIDs,
	Run: func(cmd *cobra.Command, args []string) {
		deleteEntry(cmd.Context(), args[0])
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "skip confirmation prompt")
}

// deleteEntry handles the deletion of a journal entry
func deleteEntry(ctx context.Context, prefix string) {
	services, release, ok := openJournal()
	if !ok {
		return
	}
	defer release()

	e, err := services.Journal.Resolve(ctx, prefix)
	if err != nil {
		fail(fmt.Sprintf("No single entry matches '%s'", prefix), err)
		return
	}

	showEntryForDeletion(e)

	if !yesFlag {
		if !promptConfirmation() {
			_, _ = fmt.Fprintln(deps.Stdout, "Deletion cancelled")
			return
		}
	}

	if err := services.Journal.Delete(ctx, e.ID); err != nil {
		fail("Failed to delete entry", err)
		return
	}

	_, _ = fmt.Fprintf(deps.Stdout, "Deleted: %s\n", e.ShortID())
}

// showEntryForDeletion displays the entry that is about to be deleted
func showEntryForDeletion(e entry.Entry) {
	_, _ = fmt.Fprintf(deps.Stdout, "Entry to delete:\n")
	_, _ = fmt.Fprintf(deps.Stdout, "  %s  %s\n", e.CreatedAt.Format("2006-01-02"), formatEntryLine(e))
}

// promptConfirmation asks the user to confirm deletion
// Returns true if user confirms with 'y' or 'Y', false otherwise
func promptConfirmation() bool {
	_, _ = fmt.Fprint(deps.Stdout, "Delete this entry? [y/N]: ")

	scanner := bufio.NewScanner(deps.Stdin)
	if !scanner.Scan() {
		return false
	}

	response := strings.TrimSpace(scanner.Text())
	return response == "y" || response == "Y"
}
