package views

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/xolan/hark/internal/bucket"
	"github.com/xolan/hark/internal/capture"
	"github.com/xolan/hark/internal/entry"
	"github.com/xolan/hark/internal/service"
	"github.com/xolan/hark/internal/storage"
	"github.com/xolan/hark/internal/tui/ui"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeStream holds its data until flushed.
type fakeStream struct {
	data   []byte
	ch     chan capture.Chunk
	closed int32
	once   sync.Once
}

func (s *fakeStream) IsTypeSupported(mt string) bool { return mt == "audio/webm" }
func (s *fakeStream) DefaultMimeType() string        { return "audio/wav" }

func (s *fakeStream) Start(string) (<-chan capture.Chunk, error) {
	s.ch = make(chan capture.Chunk, 1)
	return s.ch, nil
}

func (s *fakeStream) Flush() error {
	s.once.Do(func() {
		s.ch <- capture.Chunk{Data: s.data}
		close(s.ch)
	})
	return nil
}

func (s *fakeStream) Close() error {
	atomic.AddInt32(&s.closed, 1)
	return nil
}

type fakeDevice struct {
	openErr error

	mu      sync.Mutex
	streams []*fakeStream
}

func (d *fakeDevice) Open(context.Context) (capture.Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &fakeStream{data: []byte("RIFF")}
	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

func newTestModel(t *testing.T, device capture.Device, tr service.Transcriber) (JournalModel, *service.Journal) {
	t.Helper()
	store, err := storage.OpenJSONL(filepath.Join(t.TempDir(), "entries.jsonl"), testLogger())
	if err != nil {
		t.Fatalf("OpenJSONL() error: %v", err)
	}

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))

	var recorder *capture.Recorder
	if device != nil {
		recorder = capture.NewRecorder(device, capture.WithLogger(testLogger()))
	}
	j := service.NewJournal(store, recorder, tr,
		service.WithClock(mock),
		service.WithLocation(time.UTC),
		service.WithLogger(testLogger()),
	)
	t.Cleanup(func() { _ = j.Close() })

	m := NewJournalModel(j, ui.DefaultStyles(), ui.DefaultKeyMap())
	m.SetSize(100, 40)
	m = feed(t, m, m.Init())
	return m, j
}

// messages runs cmd, expanding a batch one level deep.
func messages(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		if c != nil {
			out = append(out, c())
		}
	}
	return out
}

// feed delivers every message produced by cmd to m.
func feed(t *testing.T, m JournalModel, cmd tea.Cmd) JournalModel {
	t.Helper()
	for _, msg := range messages(cmd) {
		m, _ = m.Update(msg)
	}
	return m
}

func statusOf(t *testing.T, cmd tea.Cmd) ui.StatusMsg {
	t.Helper()
	for _, msg := range messages(cmd) {
		if s, ok := msg.(ui.StatusMsg); ok {
			return s
		}
	}
	t.Fatal("expected a status message")
	return ui.StatusMsg{}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(m JournalModel, s string) JournalModel {
	for _, r := range s {
		m, _ = m.Update(runes(string(r)))
	}
	return m
}

func TestJournalModel_EmptyJournal(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)

	view := m.View()
	if !strings.Contains(view, "No entries yet") {
		t.Errorf("expected empty journal hint, got:\n%s", view)
	}
}

func TestJournalModel_AddEntry(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)

	m, _ = m.Update(runes("n"))
	if !m.IsInputMode() {
		t.Fatal("expected input mode after n")
	}
	if !strings.Contains(m.View(), "New Entry") {
		t.Error("expected new entry form")
	}

	m = typeText(m, "buy milk")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.IsInputMode() {
		t.Error("expected input mode to end on enter")
	}

	// written, then reloaded
	var loadCmd tea.Cmd
	for _, msg := range messages(cmd) {
		m, loadCmd = m.Update(msg)
	}
	m = feed(t, m, loadCmd)

	if len(m.entries) != 1 || m.entries[0].Content != "buy milk" {
		t.Fatalf("expected one entry 'buy milk', got %+v", m.entries)
	}
	view := m.View()
	if !strings.Contains(view, bucket.Today) || !strings.Contains(view, "buy milk") {
		t.Errorf("expected Today group with entry, got:\n%s", view)
	}
}

func TestJournalModel_AddEmptyEntryIsRejected(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)

	m, _ = m.Update(runes("n"))
	m = typeText(m, "   ")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if !m.IsInputMode() {
		t.Error("expected to stay in input mode")
	}
	if s := statusOf(t, cmd); !errors.Is(s.Err, entry.ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", s.Err)
	}
}

func TestJournalModel_EscLeavesInputMode(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)

	m, _ = m.Update(runes("n"))
	m = typeText(m, "draft")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	if m.IsInputMode() {
		t.Error("expected normal mode after esc")
	}
	if len(m.entries) != 0 {
		t.Error("expected nothing saved")
	}
}

func TestJournalModel_Navigation(t *testing.T) {
	m, j := newTestModel(t, nil, nil)
	for _, s := range []string{"one", "two", "three"} {
		if _, err := j.AddText(context.Background(), s); err != nil {
			t.Fatalf("AddText() error: %v", err)
		}
	}
	m = feed(t, m, m.loadEntries())

	tests := []struct {
		key    string
		cursor int
	}{
		{"k", 0},
		{"j", 1},
		{"j", 2},
		{"j", 2},
		{"k", 1},
	}
	for _, tt := range tests {
		m, _ = m.Update(runes(tt.key))
		if m.cursor != tt.cursor {
			t.Errorf("after %s expected cursor %d, got %d", tt.key, tt.cursor, m.cursor)
		}
	}
}

func TestJournalModel_Delete(t *testing.T) {
	m, j := newTestModel(t, nil, nil)
	if _, err := j.AddText(context.Background(), "forget me"); err != nil {
		t.Fatalf("AddText() error: %v", err)
	}
	m = feed(t, m, m.Init())

	// declined
	m, _ = m.Update(runes("d"))
	if !strings.Contains(m.View(), "Delete Entry") {
		t.Fatalf("expected confirmation dialog, got:\n%s", m.View())
	}
	m, _ = m.Update(runes("n"))
	if m.mode != journalModeNormal || len(m.entries) != 1 {
		t.Fatal("expected entry kept after declining")
	}

	// confirmed
	m, _ = m.Update(runes("d"))
	m, cmd := m.Update(runes("y"))
	var loadCmd tea.Cmd
	for _, msg := range messages(cmd) {
		m, loadCmd = m.Update(msg)
	}
	m = feed(t, m, loadCmd)

	if len(m.entries) != 0 {
		t.Errorf("expected entry deleted, got %+v", m.entries)
	}
	entries, _ := j.List(context.Background())
	if len(entries) != 0 {
		t.Errorf("expected store empty, got %d entries", len(entries))
	}
}

func TestJournalModel_DeleteIgnoredWhenEmpty(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)

	m, _ = m.Update(runes("d"))
	if m.mode != journalModeNormal {
		t.Error("expected delete to be ignored with no entries")
	}
}

func TestJournalModel_RecordAndStop(t *testing.T) {
	device := &fakeDevice{}
	m, _ := newTestModel(t, device, &fakeTranscriber{text: "call the plumber"})

	_, cmd := m.Update(runes("r"))
	m = feed(t, m, cmd)
	if m.mode != journalModeRecording {
		t.Fatalf("expected recording mode, got %d", m.mode)
	}
	if !strings.Contains(m.View(), "Recording") {
		t.Errorf("expected recording indicator, got:\n%s", m.View())
	}

	m, cmd = m.Update(runes("r"))
	if m.mode != journalModeTranscribing {
		t.Fatalf("expected transcribing mode, got %d", m.mode)
	}
	if !strings.Contains(m.View(), "Transcribing") {
		t.Errorf("expected transcribing indicator, got:\n%s", m.View())
	}

	var next []tea.Cmd
	for _, msg := range messages(cmd) {
		var c tea.Cmd
		m, c = m.Update(msg)
		next = append(next, c)
	}
	for _, c := range next {
		m = feed(t, m, c)
	}

	if m.mode != journalModeNormal {
		t.Errorf("expected normal mode, got %d", m.mode)
	}
	if len(m.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(m.entries))
	}
	e := m.entries[0]
	if e.Kind != entry.KindAudio || e.Content != "call the plumber" {
		t.Errorf("unexpected entry %+v", e)
	}
	if !strings.Contains(m.View(), "[audio]") {
		t.Error("expected audio marker in list")
	}
}

func TestJournalModel_CancelRecording(t *testing.T) {
	device := &fakeDevice{}
	m, j := newTestModel(t, device, &fakeTranscriber{text: "never"})

	_, cmd := m.Update(runes("r"))
	m = feed(t, m, cmd)

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	msgs := messages(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	m, cmd = m.Update(msgs[0])

	if m.mode != journalModeNormal {
		t.Errorf("expected normal mode, got %d", m.mode)
	}
	if s := statusOf(t, cmd); s.Text != "Recording cancelled" {
		t.Errorf("unexpected status %+v", s)
	}
	if got := atomic.LoadInt32(&device.streams[0].closed); got != 1 {
		t.Errorf("expected stream released once, got %d", got)
	}
	entries, _ := j.List(context.Background())
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestJournalModel_EscWhileTranscribingIsIgnored(t *testing.T) {
	m, _ := newTestModel(t, &fakeDevice{}, &fakeTranscriber{})

	_, cmd := m.Update(runes("r"))
	m = feed(t, m, cmd)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != journalModeTranscribing {
		t.Errorf("expected to stay transcribing, got %d", m.mode)
	}
	if s := statusOf(t, cmd); !strings.Contains(s.Text, "Transcription in progress") {
		t.Errorf("unexpected status %+v", s)
	}
}

func TestJournalModel_StartFailure(t *testing.T) {
	device := &fakeDevice{openErr: errors.New("no microphone")}
	m, _ := newTestModel(t, device, &fakeTranscriber{})

	_, cmd := m.Update(runes("r"))
	msgs := messages(cmd)
	m, cmd = m.Update(msgs[0])

	if m.mode != journalModeNormal {
		t.Errorf("expected normal mode, got %d", m.mode)
	}
	if s := statusOf(t, cmd); !errors.Is(s.Err, capture.ErrCaptureUnavailable) {
		t.Errorf("expected ErrCaptureUnavailable, got %v", s.Err)
	}
}

func TestJournalModel_TranscriptionFailureKeepsList(t *testing.T) {
	m, j := newTestModel(t, &fakeDevice{}, &fakeTranscriber{err: errors.New("provider down")})
	if _, err := j.AddText(context.Background(), "existing"); err != nil {
		t.Fatalf("AddText() error: %v", err)
	}
	m = feed(t, m, m.loadEntries())

	_, cmd := m.Update(runes("r"))
	m = feed(t, m, cmd)
	m, _ = m.Update(runes("r"))

	done := m.stopRecording(m.session)()
	m, cmd = m.Update(done)

	if s := statusOf(t, cmd); s.Err == nil || !strings.Contains(s.Err.Error(), "provider down") {
		t.Errorf("expected provider error, got %+v", s)
	}
	if m.mode != journalModeNormal || len(m.entries) != 1 {
		t.Errorf("expected list unchanged, got mode %d and %d entries", m.mode, len(m.entries))
	}
}

func TestJournalModel_StaleTickIgnored(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)

	m, cmd := m.Update(recordingTickMsg{session: nil})
	if cmd != nil || m.mode != journalModeNormal {
		t.Error("expected tick outside recording to be ignored")
	}
}

func TestJournalModel_KeyHints(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)

	tests := []struct {
		mode journalMode
		want string
	}{
		{journalModeNormal, "record/stop"},
		{journalModeAdd, "save"},
		{journalModeDelete, "confirm"},
		{journalModeRecording, "stop"},
	}
	for _, tt := range tests {
		m.mode = tt.mode
		found := false
		for _, b := range m.KeyHints() {
			if b.Help().Desc == tt.want {
				found = true
			}
		}
		if !found {
			t.Errorf("mode %d: expected hint %q", tt.mode, tt.want)
		}
	}
	m.mode = journalModeTranscribing
	if len(m.KeyHints()) != 0 {
		t.Error("expected no hints while transcribing")
	}
}

func TestRenderGroups(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	text, _ := entry.NewText("buy milk", now)
	audio := entry.NewAudio("", []byte{1}, "audio/webm", now.Add(-24*time.Hour))
	groups := bucket.Bucket([]entry.Entry{text, audio}, now)

	out := RenderGroups(groups, ui.DefaultStyles(), EntryRenderOptions{Width: 100, Cursor: 1})

	for _, want := range []string{bucket.Today, bucket.Yesterday, "buy milk", "[audio]", "(no speech detected)", "▸"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Index(out, bucket.Today) > strings.Index(out, bucket.Yesterday) {
		t.Error("expected Today before Yesterday")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"too long here", 5, "too …"},
		{"héllo wörld", 6, "héllo…"},
		{"abc", 1, "…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("first\n  second\tthird"); got != "first second third" {
		t.Errorf("oneLine() = %q", got)
	}
}
