package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains all the styles used in the TUI
type Styles struct {
	// Base styles
	App lipgloss.Style

	// Header
	Header    lipgloss.Style
	HeaderSub lipgloss.Style

	// Content area
	Content     lipgloss.Style
	ViewTitle   lipgloss.Style
	GroupHeader lipgloss.Style

	// Status bar
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style
	StatusHelp  lipgloss.Style

	// Entry list
	EntrySelected lipgloss.Style
	EntryNormal   lipgloss.Style
	EntryID       lipgloss.Style
	EntryTime     lipgloss.Style
	EntryKind     lipgloss.Style
	EntryContent  lipgloss.Style
	EntryEmpty    lipgloss.Style

	// Recording
	Recording lipgloss.Style
	Elapsed   lipgloss.Style
	Spinner   lipgloss.Style

	// Labels
	Label lipgloss.Style
	Value lipgloss.Style

	// Help
	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style

	// Input
	Input        lipgloss.Style
	InputFocused lipgloss.Style

	// Dialog
	Dialog      lipgloss.Style
	DialogTitle lipgloss.Style

	// Errors and warnings
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
}

// DefaultStyles returns the default TUI styles
func DefaultStyles() Styles {
	// Color palette
	primary := lipgloss.Color("99")     // Purple
	secondary := lipgloss.Color("39")   // Cyan
	accent := lipgloss.Color("212")     // Pink
	muted := lipgloss.Color("240")      // Gray
	success := lipgloss.Color("82")     // Green
	warning := lipgloss.Color("214")    // Orange
	errorColor := lipgloss.Color("196") // Red

	return Styles{
		App: lipgloss.NewStyle().Padding(1, 2),

		Header: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true),
		HeaderSub: lipgloss.NewStyle().
			Foreground(muted).
			MarginBottom(1),

		Content: lipgloss.NewStyle().
			Padding(0, 1),
		ViewTitle: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true).
			MarginBottom(1),
		GroupHeader: lipgloss.NewStyle().
			Foreground(secondary).
			Bold(true).
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(muted),

		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1),
		StatusKey: lipgloss.NewStyle().
			Foreground(secondary).
			Bold(true),
		StatusValue: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		StatusHelp: lipgloss.NewStyle().
			Foreground(muted),

		EntrySelected: lipgloss.NewStyle().
			Background(lipgloss.Color("237")).
			Bold(true),
		EntryNormal: lipgloss.NewStyle(),
		EntryID: lipgloss.NewStyle().
			Foreground(muted).
			Width(10),
		EntryTime: lipgloss.NewStyle().
			Foreground(secondary).
			Width(7),
		EntryKind: lipgloss.NewStyle().
			Foreground(accent).
			Width(8),
		EntryContent: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		EntryEmpty: lipgloss.NewStyle().
			Foreground(muted).
			Italic(true),

		Recording: lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true),
		Elapsed: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		Spinner: lipgloss.NewStyle().
			Foreground(primary),

		Label: lipgloss.NewStyle().
			Foreground(muted),
		Value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),

		HelpKey: lipgloss.NewStyle().
			Foreground(secondary).
			Bold(true),
		HelpDesc: lipgloss.NewStyle().
			Foreground(muted),

		Input: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		InputFocused: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(primary).
			Padding(0, 1),

		Dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(1, 2).
			Width(60),
		DialogTitle: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true).
			MarginBottom(1),

		Error: lipgloss.NewStyle().
			Foreground(errorColor),
		Warning: lipgloss.NewStyle().
			Foreground(warning),
		Success: lipgloss.NewStyle().
			Foreground(success),
	}
}
