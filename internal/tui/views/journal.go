package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/xolan/hark/internal/bucket"
	"github.com/xolan/hark/internal/capture"
	"github.com/xolan/hark/internal/entry"
	"github.com/xolan/hark/internal/service"
	"github.com/xolan/hark/internal/tui/ui"
)

// journalMode represents the current mode of the journal view
type journalMode int

const (
	journalModeNormal journalMode = iota
	journalModeAdd
	journalModeRecording
	journalModeTranscribing
	journalModeDelete
)

// JournalModel is the model for the journal view
type JournalModel struct {
	journal *service.Journal
	styles  ui.Styles
	keys    ui.KeyMap

	// UI state
	width   int
	height  int
	cursor  int
	groups  []bucket.Group
	entries []entry.Entry
	loaded  bool
	err     error

	// Input mode state
	mode    journalMode
	input   textinput.Model
	spinner spinner.Model

	// Recording state
	session *capture.Session
	elapsed int
}

// NewJournalModel creates a new journal view model
func NewJournalModel(journal *service.Journal, styles ui.Styles, keys ui.KeyMap) JournalModel {
	input := textinput.New()
	input.Placeholder = "What's on your mind?"
	input.CharLimit = 500
	input.Width = 60

	return JournalModel{
		journal: journal,
		styles:  styles,
		keys:    keys,
		input:   input,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(styles.Spinner),
		),
	}
}

// entriesLoadedMsg is sent when the journal has been read from the store
type entriesLoadedMsg struct {
	groups []bucket.Group
	err    error
}

// entryWrittenMsg is sent once an add or delete has been persisted
type entryWrittenMsg struct {
	status string
	err    error
}

// recordingStartedMsg is sent when the capture device is recording
type recordingStartedMsg struct {
	session *capture.Session
	err     error
}

// recordingTickMsg is sent every second while a session records
type recordingTickMsg struct {
	session *capture.Session
}

// recordingDoneMsg is sent when a session has been transcribed and stored
type recordingDoneMsg struct {
	entry entry.Entry
	err   error
}

// recordingCancelledMsg is sent after a cancel request has been handled
type recordingCancelledMsg struct {
	err error
}

// Init implements tea.Model
func (m JournalModel) Init() tea.Cmd {
	return m.loadEntries()
}

// Update implements tea.Model
func (m JournalModel) Update(msg tea.Msg) (JournalModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case journalModeAdd:
			return m.handleInputMode(msg)
		case journalModeDelete:
			return m.handleDeleteMode(msg)
		case journalModeRecording:
			return m.handleRecordingMode(msg)
		case journalModeTranscribing:
			if key.Matches(msg, m.keys.Back) {
				return m, statusText("Transcription in progress, it can no longer be cancelled")
			}
			return m, nil
		}
		return m.handleNormalMode(msg)

	case entriesLoadedMsg:
		m.loaded = true
		m.err = msg.err
		if msg.err == nil {
			m.groups = msg.groups
			m.entries = bucket.Flatten(msg.groups)
			if m.cursor >= len(m.entries) {
				m.cursor = max(0, len(m.entries)-1)
			}
		}
		return m, nil

	case entryWrittenMsg:
		m.mode = journalModeNormal
		if msg.err != nil {
			return m, statusErr(msg.err)
		}
		return m, tea.Batch(m.loadEntries(), statusText(msg.status))

	case recordingStartedMsg:
		if msg.err != nil {
			m.mode = journalModeNormal
			return m, statusErr(msg.err)
		}
		m.mode = journalModeRecording
		m.session = msg.session
		m.elapsed = 0
		return m, tea.Batch(tick(msg.session), statusText("Recording"))

	case recordingTickMsg:
		if m.mode != journalModeRecording || msg.session != m.session {
			return m, nil
		}
		m.elapsed = m.session.ElapsedSeconds()
		if m.session.State().IsTerminal() {
			// The device ended the session on its own.
			m.mode = journalModeTranscribing
			return m, tea.Batch(m.finishRecording(m.session), m.spinner.Tick)
		}
		return m, tick(m.session)

	case recordingDoneMsg:
		m.mode = journalModeNormal
		m.session = nil
		switch {
		case errors.Is(msg.err, capture.ErrCancelled):
			return m, statusText("Recording cancelled")
		case msg.err != nil:
			return m, statusErr(msg.err)
		}
		return m, tea.Batch(m.loadEntries(), statusText("Saved "+msg.entry.ShortID()))

	case recordingCancelledMsg:
		if msg.err != nil {
			return m, statusErr(msg.err)
		}
		m.mode = journalModeNormal
		m.session = nil
		return m, statusText("Recording cancelled")

	case spinner.TickMsg:
		if m.mode != journalModeTranscribing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.mode == journalModeAdd {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleNormalMode handles key events when browsing the journal
func (m JournalModel) handleNormalMode(msg tea.KeyMsg) (JournalModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadEntries()
	case key.Matches(msg, m.keys.New):
		m.mode = journalModeAdd
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Delete):
		if len(m.entries) > 0 && m.cursor < len(m.entries) {
			m.mode = journalModeDelete
		}
	case key.Matches(msg, m.keys.Record):
		return m, m.startRecording()
	}
	return m, nil
}

// handleInputMode handles key events when typing a new entry
func (m JournalModel) handleInputMode(msg tea.KeyMsg) (JournalModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		content := strings.TrimSpace(m.input.Value())
		if content == "" {
			return m, statusErr(entry.ErrEmptyContent)
		}
		m.input.Blur()
		m.mode = journalModeNormal
		return m, m.addEntry(content)
	case key.Matches(msg, m.keys.Back):
		m.mode = journalModeNormal
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleDeleteMode handles key events when in delete confirmation mode
func (m JournalModel) handleDeleteMode(msg tea.KeyMsg) (JournalModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.mode = journalModeNormal
		if m.cursor < len(m.entries) {
			return m, m.deleteEntry(m.entries[m.cursor])
		}
	case key.Matches(msg, m.keys.Deny):
		m.mode = journalModeNormal
	}
	return m, nil
}

// handleRecordingMode handles key events while a session records
func (m JournalModel) handleRecordingMode(msg tea.KeyMsg) (JournalModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Record), key.Matches(msg, m.keys.Select):
		m.mode = journalModeTranscribing
		return m, tea.Batch(m.stopRecording(m.session), m.spinner.Tick)
	case key.Matches(msg, m.keys.Back):
		return m, m.cancelRecording()
	}
	return m, nil
}

// View implements tea.Model
func (m JournalModel) View() string {
	switch m.mode {
	case journalModeAdd:
		return m.renderAddForm()
	case journalModeDelete:
		return m.renderDeleteConfirm()
	}

	var b strings.Builder

	switch m.mode {
	case journalModeRecording:
		b.WriteString(m.styles.Recording.Render("● Recording"))
		b.WriteString("  ")
		b.WriteString(m.styles.Elapsed.Render(fmt.Sprintf("%ds", m.elapsed)))
		if mt := m.session.MimeType(); mt != "" {
			b.WriteString("  ")
			b.WriteString(m.styles.Label.Render(mt))
		}
		b.WriteString("\n")
		b.WriteString(m.styles.Label.Render("r or Enter to stop, Esc to cancel"))
		b.WriteString("\n\n")
	case journalModeTranscribing:
		b.WriteString(m.spinner.View())
		b.WriteString(" Transcribing...")
		b.WriteString("\n\n")
	}

	if !m.loaded {
		b.WriteString("Loading...")
		return b.String()
	}

	if m.err != nil {
		b.WriteString(m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err)))
		return b.String()
	}

	if len(m.entries) == 0 {
		b.WriteString(m.styles.Label.Render("No entries yet"))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Label.Render("Press 'n' to write an entry or 'r' to record one"))
		return b.String()
	}

	b.WriteString(RenderGroups(m.groups, m.styles, EntryRenderOptions{
		Width:  m.width,
		Cursor: m.cursor,
	}))
	b.WriteString("\n")
	b.WriteString(m.styles.Label.Render(fmt.Sprintf("%d %s", len(m.entries), pluralize("entry", len(m.entries)))))

	return b.String()
}

// renderAddForm renders the new entry form
func (m JournalModel) renderAddForm() string {
	var b strings.Builder
	b.WriteString(m.styles.ViewTitle.Render("New Entry"))
	b.WriteString("\n\n")
	b.WriteString(m.styles.InputFocused.Render(m.input.View()))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Label.Render("Enter to save, Esc to cancel"))
	return b.String()
}

// renderDeleteConfirm renders the delete confirmation dialog
func (m JournalModel) renderDeleteConfirm() string {
	var b strings.Builder
	b.WriteString(m.styles.DialogTitle.Render("Delete Entry"))
	b.WriteString("\n")

	if m.cursor < len(m.entries) {
		e := m.entries[m.cursor]
		b.WriteString(m.styles.Warning.Render("Are you sure you want to delete this entry?"))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Label.Render("ID:      "))
		b.WriteString(m.styles.Value.Render(e.ShortID()))
		b.WriteString("\n")
		b.WriteString(m.styles.Label.Render("Created: "))
		b.WriteString(m.styles.Value.Render(e.CreatedAt.Format("2006-01-02 15:04")))
		b.WriteString("\n")
		b.WriteString(m.styles.Label.Render("Content: "))
		content := e.Content
		if content == "" {
			content = "(no speech detected)"
		}
		b.WriteString(m.styles.Value.Render(truncate(oneLine(content), 40)))
		b.WriteString("\n\n")
	}

	b.WriteString(m.styles.Label.Render("Press Y to confirm, N or Esc to cancel"))
	return m.styles.Dialog.Render(b.String())
}

// SetSize sets the view dimensions
func (m *JournalModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = min(60, max(20, width-8))
}

// IsInputMode returns true when the view is capturing keyboard input
func (m JournalModel) IsInputMode() bool {
	return m.mode == journalModeAdd
}

// KeyHints returns the bindings that apply in the current mode.
func (m JournalModel) KeyHints() []key.Binding {
	switch m.mode {
	case journalModeAdd:
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "save")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "cancel")),
		}
	case journalModeDelete:
		return []key.Binding{m.keys.Confirm, m.keys.Deny}
	case journalModeRecording:
		return []key.Binding{
			key.NewBinding(key.WithKeys("r", "enter"), key.WithHelp("r/Enter", "stop")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "cancel")),
		}
	case journalModeTranscribing:
		return nil
	}
	return []key.Binding{m.keys.New, m.keys.Record, m.keys.Delete, m.keys.Refresh, m.keys.Up, m.keys.Down}
}

// loadEntries creates a command to load the grouped journal
func (m JournalModel) loadEntries() tea.Cmd {
	return func() tea.Msg {
		groups, err := m.journal.Grouped(context.Background())
		return entriesLoadedMsg{groups: groups, err: err}
	}
}

// addEntry creates a command to store a text entry
func (m JournalModel) addEntry(content string) tea.Cmd {
	return func() tea.Msg {
		e, err := m.journal.AddText(context.Background(), content)
		if err != nil {
			return entryWrittenMsg{err: err}
		}
		return entryWrittenMsg{status: "Saved " + e.ShortID()}
	}
}

// deleteEntry creates a command to delete an entry
func (m JournalModel) deleteEntry(e entry.Entry) tea.Cmd {
	return func() tea.Msg {
		if err := m.journal.Delete(context.Background(), e.ID); err != nil {
			return entryWrittenMsg{err: err}
		}
		return entryWrittenMsg{status: "Deleted " + e.ShortID()}
	}
}

// startRecording creates a command that opens the device and begins capture
func (m JournalModel) startRecording() tea.Cmd {
	return func() tea.Msg {
		s, err := m.journal.StartRecording(context.Background())
		return recordingStartedMsg{session: s, err: err}
	}
}

// stopRecording creates a command that stops s, then transcribes and stores it
func (m JournalModel) stopRecording(s *capture.Session) tea.Cmd {
	return func() tea.Msg {
		if err := s.Stop(); err != nil {
			return recordingDoneMsg{err: err}
		}
		e, err := m.journal.Finish(context.Background(), s)
		return recordingDoneMsg{entry: e, err: err}
	}
}

// finishRecording creates a command for a session that has already ended
func (m JournalModel) finishRecording(s *capture.Session) tea.Cmd {
	return func() tea.Msg {
		e, err := m.journal.Finish(context.Background(), s)
		return recordingDoneMsg{entry: e, err: err}
	}
}

// cancelRecording creates a command that abandons the current session
func (m JournalModel) cancelRecording() tea.Cmd {
	return func() tea.Msg {
		return recordingCancelledMsg{err: m.journal.CancelRecording()}
	}
}

// tick returns a command that sends a recording tick every second
func tick(s *capture.Session) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return recordingTickMsg{session: s}
	})
}

func statusText(text string) tea.Cmd {
	return func() tea.Msg { return ui.StatusMsg{Text: text} }
}

func statusErr(err error) tea.Cmd {
	return func() tea.Msg { return ui.StatusMsg{Err: err} }
}
