package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display or manage configuration settings",
	Long: `Display the current effective configuration settings for hark.

Shows the configuration file location, whether it exists, and all current settings.
Configuration values are merged from the config file with sensible defaults.
The transcription API key is never printed in full.

By default, hark works without any configuration file. All settings have defaults:
  - timezone: Local (system timezone)
  - storage.backend: sqlite
  - transcription.provider: openai, key read from HARK_API_KEY
  - capture.command: ffmpeg

Examples:

  Display current configuration:
    hark config                      Show all current settings

  Create a commented sample file:
    hark config --init

Configuration file location:
  ~/.config/hark/config.toml         Linux
  %APPDATA%\hark\config.toml         Windows`,
	Run: func(cmd *cobra.Command, args []string) {
		initFlag, _ := cmd.Flags().GetBool("init")
		if initFlag {
			initConfig()
			return
		}
		showConfig()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().Bool("init", false, "Write a commented sample config file")
}

// initConfig writes the sample config file
func initConfig() {
	services, release, ok := openJournal()
	if !ok {
		return
	}
	defer release()

	if err := services.Config.Init(); err != nil {
		fail("Failed to create config file", err)
		return
	}
	_, _ = fmt.Fprintf(deps.Stdout, "Created %s\n", services.Config.GetPath())
}

// showConfig displays the current effective configuration
func showConfig() {
	services, release, ok := openJournal()
	if !ok {
		return
	}
	defer release()

	view, err := services.Config.View()
	if err != nil {
		fail("Failed to resolve configuration", err)
		return
	}
	cfg := view.Config

	_, _ = fmt.Fprintln(deps.Stdout, "Configuration for hark")
	_, _ = fmt.Fprintln(deps.Stdout, strings.Repeat("=", 60))
	_, _ = fmt.Fprintln(deps.Stdout)

	_, _ = fmt.Fprintf(deps.Stdout, "Config file:     %s\n", view.Path)
	if view.Exists {
		_, _ = fmt.Fprintln(deps.Stdout, "Status:          File exists (using custom configuration)")
	} else {
		_, _ = fmt.Fprintln(deps.Stdout, "Status:          No config file (using defaults)")
	}
	_, _ = fmt.Fprintln(deps.Stdout)

	_, _ = fmt.Fprintln(deps.Stdout, "Current Settings:")
	_, _ = fmt.Fprintln(deps.Stdout, strings.Repeat("-", 60))
	_, _ = fmt.Fprintf(deps.Stdout, "Timezone:        %s\n", cfg.Timezone)
	_, _ = fmt.Fprintf(deps.Stdout, "Storage:         %s (%s)\n", cfg.Storage.Backend, view.StoragePath)
	_, _ = fmt.Fprintf(deps.Stdout, "Provider:        %s\n", cfg.Transcription.Provider)
	if cfg.Transcription.Model == "" {
		_, _ = fmt.Fprintln(deps.Stdout, "Model:           (provider default)")
	} else {
		_, _ = fmt.Fprintf(deps.Stdout, "Model:           %s\n", cfg.Transcription.Model)
	}
	_, _ = fmt.Fprintf(deps.Stdout, "Timeout:         %s\n", cfg.Transcription.Timeout)
	if view.APIKeyPresent {
		_, _ = fmt.Fprintf(deps.Stdout, "API key:         %s (%s)\n", view.APIKeyMasked, cfg.Transcription.APIKeyEnv)
	} else {
		_, _ = fmt.Fprintf(deps.Stdout, "API key:         not set (%s)\n", cfg.Transcription.APIKeyEnv)
	}
	_, _ = fmt.Fprintf(deps.Stdout, "Capture command: %s\n", cfg.Capture.Command)
	_, _ = fmt.Fprintf(deps.Stdout, "Log:             %s (%s)\n", view.LogPath, cfg.Log.Level)
	_, _ = fmt.Fprintln(deps.Stdout)

	if !view.Exists {
		_, _ = fmt.Fprintln(deps.Stdout, "Tip: Run 'hark config --init' to create a commented config file.")
		_, _ = fmt.Fprintln(deps.Stdout)
	}
}
