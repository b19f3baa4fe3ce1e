package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// completionCmd represents the completion command
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for hark.

The completion command allows you to generate shell completion scripts for
bash, zsh, fish, and powershell. This enables tab-completion for commands,
flags, and arguments in your shell.

Usage:
  hark completion bash       Generate bash completion script
  hark completion zsh        Generate zsh completion script
  hark completion fish       Generate fish completion script
  hark completion powershell Generate powershell completion script

Installation Instructions:

Bash:
  # Load completion temporarily (current session only):
  source <(hark completion bash)

  # Install completion permanently:
  # Linux:
  hark completion bash > ~/.local/share/bash-completion/completions/hark

  # macOS (requires bash-completion from Homebrew):
  hark completion bash > $(brew --prefix)/etc/bash_completion.d/hark

Zsh:
  # Load completion temporarily (current session only):
  source <(hark completion zsh)

  # Install completion permanently:
  # Add to ~/.zshrc:
  echo 'fpath=(~/.zsh/completion $fpath)' >> ~/.zshrc
  echo 'autoload -Uz compinit && compinit' >> ~/.zshrc

  # Generate completion file:
  mkdir -p ~/.zsh/completion
  hark completion zsh > ~/.zsh/completion/_hark

  # Then restart your shell

Fish:
  # Install completion permanently:
  hark completion fish > ~/.config/fish/completions/hark.fish

PowerShell:
  # Open your PowerShell profile:
  notepad $PROFILE

  # Add this line to your profile:
  hark completion powershell | Out-String | Invoke-Expression

  # Save and restart PowerShell`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.ExactValidArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		generateCompletion(args[0])
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// generateCompletion generates the appropriate completion script based on shell type
func generateCompletion(shell string) {
	var err error

	switch shell {
	case "bash":
		err = rootCmd.GenBashCompletion(deps.Stdout)
	case "zsh":
		err = rootCmd.GenZshCompletion(deps.Stdout)
	case "fish":
		err = rootCmd.GenFishCompletion(deps.Stdout, true)
	case "powershell":
		err = rootCmd.GenPowerShellCompletionWithDesc(deps.Stdout)
	default:
		_, _ = fmt.Fprintf(deps.Stderr, "Error: Unsupported shell '%s'\n", shell)
		_, _ = fmt.Fprintln(deps.Stderr, "Supported shells: bash, zsh, fish, powershell")
		deps.Exit(1)
		return
	}

	if err != nil {
		_, _ = fmt.Fprintf(deps.Stderr, "Error: Failed to generate %s completion: %v\n", shell, err)
		deps.Exit(1)
		return
	}
}

// completeEntryIDs offers the short ids of stored entries, with their content
// as the description.
func completeEntryIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	services, release, err := deps.Services()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer release()

	entries, err := services.Journal.List(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var out []string
	for _, e := range entries {
		if !strings.HasPrefix(e.ID, strings.ToLower(toComplete)) {
			continue
		}
		desc := []rune(strings.Join(strings.Fields(e.Content), " "))
		if len(desc) > 40 {
			desc = append(desc[:37], []rune("...")...)
		}
		out = append(out, e.ShortID()+"\t"+string(desc))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
