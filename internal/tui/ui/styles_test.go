package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestDefaultStyles(t *testing.T) {
	styles := DefaultStyles()

	tests := []struct {
		name  string
		style lipgloss.Style
	}{
		{"App", styles.App},
		{"Header", styles.Header},
		{"HeaderSub", styles.HeaderSub},
		{"Content", styles.Content},
		{"ViewTitle", styles.ViewTitle},
		{"GroupHeader", styles.GroupHeader},
		{"StatusBar", styles.StatusBar},
		{"StatusKey", styles.StatusKey},
		{"StatusValue", styles.StatusValue},
		{"StatusHelp", styles.StatusHelp},
		{"EntrySelected", styles.EntrySelected},
		{"EntryNormal", styles.EntryNormal},
		{"EntryID", styles.EntryID},
		{"EntryTime", styles.EntryTime},
		{"EntryKind", styles.EntryKind},
		{"EntryContent", styles.EntryContent},
		{"EntryEmpty", styles.EntryEmpty},
		{"Recording", styles.Recording},
		{"Elapsed", styles.Elapsed},
		{"Spinner", styles.Spinner},
		{"Label", styles.Label},
		{"Value", styles.Value},
		{"HelpKey", styles.HelpKey},
		{"HelpDesc", styles.HelpDesc},
		{"Input", styles.Input},
		{"InputFocused", styles.InputFocused},
		{"Dialog", styles.Dialog},
		{"DialogTitle", styles.DialogTitle},
		{"Error", styles.Error},
		{"Warning", styles.Warning},
		{"Success", styles.Success},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered := tt.style.Render("test")
			if rendered == "" {
				t.Errorf("expected non-empty rendered output for style %s", tt.name)
			}
		})
	}
}

func TestStylesRenderText(t *testing.T) {
	styles := DefaultStyles()

	// Note: ANSI codes may not be present in non-TTY environments
	for name, style := range map[string]lipgloss.Style{
		"Success":   styles.Success,
		"Error":     styles.Error,
		"Warning":   styles.Warning,
		"Recording": styles.Recording,
	} {
		if got := style.Render(name); !strings.Contains(got, name) {
			t.Errorf("%s style dropped its text: %q", name, got)
		}
	}
}

func TestFixedWidthColumns(t *testing.T) {
	styles := DefaultStyles()

	tests := []struct {
		name  string
		style lipgloss.Style
		width int
	}{
		{"EntryID", styles.EntryID, 10},
		{"EntryTime", styles.EntryTime, 7},
		{"EntryKind", styles.EntryKind, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lipgloss.Width(tt.style.Render("x")); got != tt.width {
				t.Errorf("expected width %d, got %d", tt.width, got)
			}
		})
	}
}
