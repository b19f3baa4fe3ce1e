package views

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/xolan/hark/internal/bucket"
	"github.com/xolan/hark/internal/entry"
	"github.com/xolan/hark/internal/tui/ui"
)

// EntryRenderOptions configures how entries are rendered
type EntryRenderOptions struct {
	Width  int // Available width for rendering
	Cursor int // Index into the flattened groups (-1 for none)
}

// RenderGroups renders day groups with a header above each. The cursor counts
// entries across all groups in display order.
func RenderGroups(groups []bucket.Group, styles ui.Styles, opts EntryRenderOptions) string {
	var b strings.Builder
	index := 0
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(styles.GroupHeader.Render(g.Key))
		b.WriteString("\n")
		for _, e := range g.Entries {
			b.WriteString(RenderEntry(e, styles, opts.Width, index == opts.Cursor))
			b.WriteString("\n")
			index++
		}
	}
	return b.String()
}

// RenderEntry renders a single aligned entry row.
func RenderEntry(e entry.Entry, styles ui.Styles, width int, selected bool) string {
	id := styles.EntryID.Render(e.ShortID())
	at := styles.EntryTime.Render(e.CreatedAt.Format("15:04"))
	kind := styles.EntryKind.Render("")
	if e.Kind == entry.KindAudio {
		kind = styles.EntryKind.Render("[audio]")
	}

	room := width - lipgloss.Width(id) - lipgloss.Width(at) - lipgloss.Width(kind) - 2
	if room < 20 {
		room = 20
	}
	content := styles.EntryContent.Render(truncate(oneLine(e.Content), room))
	if e.Content == "" {
		content = styles.EntryEmpty.Render("(no speech detected)")
	}

	line := id + at + kind + content
	if selected {
		return styles.EntrySelected.Render("▸ " + line)
	}
	return styles.EntryNormal.Render("  " + line)
}

// oneLine collapses runs of whitespace, including newlines, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}

func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
