// Package tui provides the Terminal User Interface for the hark application.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/xolan/hark/internal/service"
	"github.com/xolan/hark/internal/tui/ui"
	"github.com/xolan/hark/internal/tui/views"
)

// Model is the root TUI model
type Model struct {
	// Services
	services *service.Services

	// UI state
	width    int
	height   int
	showHelp bool

	// Status line
	status    string
	statusErr error

	// View models
	journalView views.JournalModel

	styles ui.Styles
	keys   ui.KeyMap
}

// New creates a new TUI model
func New(services *service.Services) Model {
	styles := ui.DefaultStyles()
	keys := ui.DefaultKeyMap()

	return Model{
		services:    services,
		styles:      styles,
		keys:        keys,
		journalView: views.NewJournalModel(services.Journal, styles, keys),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.journalView.Init()
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Text entry owns every key but ctrl+c.
		if m.journalView.IsInputMode() {
			if msg.Type == tea.KeyCtrlC {
				return m, tea.Quit
			}
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		}

		// Any other key dismisses the previous outcome.
		m.status = ""
		m.statusErr = nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		contentHeight := m.height - 4 // Account for header and status bar
		m.journalView.SetSize(m.width, contentHeight)
		return m, nil

	case ui.StatusMsg:
		m.status = msg.Text
		m.statusErr = msg.Err
		return m, nil
	}

	var cmd tea.Cmd
	m.journalView, cmd = m.journalView.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelpOverlay()
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.styles.Content.Render(m.journalView.View()))
	b.WriteString("\n\n")
	if line := m.renderStatusLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatusBar())

	return m.styles.App.Render(b.String())
}

// renderHeader renders the title and storage location
func (m Model) renderHeader() string {
	title := m.styles.Header.Render("hark")
	cfg := m.services.Config.Get()
	sub := m.styles.HeaderSub.Render(fmt.Sprintf("%s journal, %s", cfg.Storage.Backend, cfg.Timezone))
	return lipgloss.JoinVertical(lipgloss.Left, title, sub)
}

// renderStatusLine renders the outcome of the last action
func (m Model) renderStatusLine() string {
	if m.statusErr != nil {
		return m.styles.Error.Render("Error: " + m.statusErr.Error())
	}
	if m.status != "" {
		return m.styles.Success.Render(m.status)
	}
	return ""
}

// renderStatusBar renders the status bar at the bottom
func (m Model) renderStatusBar() string {
	var parts []string

	for _, b := range m.journalView.KeyHints() {
		parts = append(parts, m.renderKeyHelp(b.Help().Key, b.Help().Desc))
	}
	if !m.journalView.IsInputMode() {
		parts = append(parts, m.renderKeyHelp("?", "help"))
		parts = append(parts, m.renderKeyHelp("q", "quit"))
	}

	content := strings.Join(parts, "  ")

	// Fill to width
	padding := m.width - lipgloss.Width(content)
	if padding > 0 {
		content += strings.Repeat(" ", padding)
	}

	return m.styles.StatusBar.Render(content)
}

// renderKeyHelp renders a single key help item
func (m Model) renderKeyHelp(key, desc string) string {
	return fmt.Sprintf("%s %s",
		m.styles.StatusKey.Render(key),
		m.styles.StatusHelp.Render(desc))
}

// renderHelpOverlay renders the keyboard reference
func (m Model) renderHelpOverlay() string {
	var help strings.Builder

	help.WriteString(m.styles.DialogTitle.Render("Keyboard Shortcuts"))
	help.WriteString("\n")

	help.WriteString(m.styles.Label.Render("Journal:"))
	help.WriteString("\n")
	help.WriteString("  j/k        Navigate up/down\n")
	help.WriteString("  n          New text entry\n")
	help.WriteString("  r          Start recording\n")
	help.WriteString("  d          Delete entry\n")
	help.WriteString("  R          Refresh\n")
	help.WriteString("\n")

	help.WriteString(m.styles.Label.Render("While recording:"))
	help.WriteString("\n")
	help.WriteString("  r/Enter    Stop and transcribe\n")
	help.WriteString("  Esc        Cancel, nothing is saved\n")
	help.WriteString("\n")

	help.WriteString(m.styles.Label.Render("Global:"))
	help.WriteString("\n")
	help.WriteString("  ?          Toggle help\n")
	help.WriteString("  q          Quit\n")
	help.WriteString("\n")

	help.WriteString(m.styles.Label.Render("Press ? to close"))

	return m.styles.App.Render(m.styles.Dialog.Render(help.String()))
}

// Run starts the TUI application
func Run(services *service.Services) error {
	model := New(services)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
