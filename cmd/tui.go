package cmd

import (
	"github.com/spf13/cobra"
	"github.com/xolan/hark/internal/service"
	"github.com/xolan/hark/internal/tui"
)

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	Long: `Launch the interactive Terminal User Interface for hark.

The TUI shows the journal grouped by day and lets you write, record and
delete entries without leaving the terminal.

Keyboard shortcuts:
  - j/k or arrows: Navigate entries
  - n: New text entry
  - r: Start recording, r or Enter stops and transcribes
  - Esc: Cancel a recording (not once transcription has started)
  - d: Delete entry (asks for confirmation)
  - R: Refresh
  - ?: Show help
  - q: Quit`,
	Run: func(cmd *cobra.Command, args []string) {
		runTUI()
	},
}

// runProgram starts the interactive program; replaced in tests.
var runProgram func(*service.Services) error = tui.Run

func init() {
	rootCmd.AddCommand(tuiCmd)

	// Add --tui flag to root command for quick access
	rootCmd.PersistentFlags().Bool("tui", false, "Launch interactive terminal UI")
}

// runTUI initializes and runs the TUI application
func runTUI() {
	services, release, ok := openJournal()
	if !ok {
		return
	}
	defer release()

	if err := runProgram(services); err != nil {
		fail("Failed to run TUI", err)
	}
}

// CheckTUIFlag checks if the --tui flag is set and runs the TUI if so.
// Returns true if the TUI was launched, false otherwise.
func CheckTUIFlag(cmd *cobra.Command) bool {
	tuiFlag, _ := cmd.Root().PersistentFlags().GetBool("tui")
	if tuiFlag {
		runTUI()
		return true
	}
	return false
}
