package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xolan/hark/internal/entry"
)

// Helper to create a temporary test file
func createTempFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test_entries.jsonl")
	if content != "" {
		if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create temp file: %v", err)
		}
	}
	return tmpFile
}

const validLine = `{"id":"11111111-aaaa","kind":"text","content":"existing entry","created_at":1718010000000}`

func TestReadWithWarnings(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantEntries  int
		wantWarnings []int // line numbers
	}{
		{
			name:         "missing file",
			content:      "",
			wantEntries:  0,
			wantWarnings: nil,
		},
		{
			name:         "all valid",
			content:      validLine + "\n" + `{"id":"2","kind":"audio","content":"","attachment":{"data":"AAEC","mime_type":"audio/webm"},"created_at":1718010001000}` + "\n",
			wantEntries:  2,
			wantWarnings: nil,
		},
		{
			name:         "malformed json",
			content:      validLine + "\n{not json\n",
			wantEntries:  1,
			wantWarnings: []int{2},
		},
		{
			name:         "audio without attachment",
			content:      `{"id":"3","kind":"audio","content":"x","created_at":1718010000000}` + "\n" + validLine + "\n",
			wantEntries:  1,
			wantWarnings: []int{1},
		},
		{
			name:         "blank lines keep numbering",
			content:      validLine + "\n\n\ngarbage\n",
			wantEntries:  1,
			wantWarnings: []int{4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createTempFile(t, tt.content)

			result, err := ReadWithWarnings(path)
			if err != nil {
				t.Fatalf("ReadWithWarnings() returned unexpected error: %v", err)
			}
			if len(result.Entries) != tt.wantEntries {
				t.Errorf("got %d entries, expected %d", len(result.Entries), tt.wantEntries)
			}
			if len(result.Warnings) != len(tt.wantWarnings) {
				t.Fatalf("got %d warnings, expected %d: %+v", len(result.Warnings), len(tt.wantWarnings), result.Warnings)
			}
			for i, w := range result.Warnings {
				if w.LineNumber != tt.wantWarnings[i] {
					t.Errorf("warning %d LineNumber = %d, expected %d", i, w.LineNumber, tt.wantWarnings[i])
				}
				if w.Error == "" {
					t.Errorf("warning %d has no error description", i)
				}
			}
		})
	}
}

func TestJSONLStore_RecordFormat(t *testing.T) {
	path := createTempFile(t, "")
	store, err := OpenJSONL(path, testLogger())
	if err != nil {
		t.Fatalf("OpenJSONL() returned unexpected error: %v", err)
	}

	at := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	e := entry.NewAudio("hi", []byte{0, 1, 2}, "audio/webm", at)
	if err := store.Insert(context.Background(), e); err != nil {
		t.Fatalf("Insert() returned unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &raw); err != nil {
		t.Fatalf("persisted line is not JSON: %v", err)
	}
	if raw["kind"] != "audio" {
		t.Errorf("kind = %v, expected audio", raw["kind"])
	}
	if raw["created_at"] != float64(at.UnixMilli()) {
		t.Errorf("created_at = %v, expected %d", raw["created_at"], at.UnixMilli())
	}
	att, ok := raw["attachment"].(map[string]any)
	if !ok {
		t.Fatalf("attachment missing: %v", raw)
	}
	if att["data"] != "AAEC" {
		t.Errorf("attachment.data = %v, expected base64 AAEC", att["data"])
	}
	if att["mime_type"] != "audio/webm" {
		t.Errorf("attachment.mime_type = %v", att["mime_type"])
	}
}

func TestJSONLStore_PreservesCorruptedLines(t *testing.T) {
	corrupt := "{this line is broken"
	path := createTempFile(t, validLine+"\n"+corrupt+"\n")

	store, err := OpenJSONL(path, testLogger())
	if err != nil {
		t.Fatalf("OpenJSONL() returned unexpected error: %v", err)
	}
	ctx := context.Background()

	e, err := entry.NewText("new one", time.Now())
	if err != nil {
		t.Fatalf("NewText() returned unexpected error: %v", err)
	}
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert() returned unexpected error: %v", err)
	}
	if err := store.Delete(ctx, "11111111-aaaa"); err != nil {
		t.Fatalf("Delete() returned unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if !strings.Contains(string(data), corrupt) {
		t.Error("rewrite dropped the corrupted line")
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health() returned unexpected error: %v", err)
	}
	if health.CorruptedEntries != 1 || health.ValidEntries != 1 {
		t.Errorf("Health() = %+v, expected 1 valid and 1 corrupted", health)
	}
	if health.OK() {
		t.Error("Health().OK() should be false with a corrupted line")
	}
}

func TestJSONLStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, EntriesFile)
	store, err := OpenJSONL(path, testLogger())
	if err != nil {
		t.Fatalf("OpenJSONL() returned unexpected error: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		e, _ := entry.NewText("entry", time.Now())
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert() returned unexpected error: %v", err)
		}
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() returned unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Name() != EntriesFile {
		var names []string
		for _, f := range files {
			names = append(names, f.Name())
		}
		t.Errorf("directory contains %v, expected only %s", names, EntriesFile)
	}
}

func TestJSONLStore_LargeAttachment(t *testing.T) {
	path := createTempFile(t, "")
	store, err := OpenJSONL(path, testLogger())
	if err != nil {
		t.Fatalf("OpenJSONL() returned unexpected error: %v", err)
	}

	// Larger than bufio.Scanner's default token size once base64-encoded.
	payload := make([]byte, 512*1024)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	e := entry.NewAudio("long note", payload, "audio/ogg;codecs=opus", time.Now())
	ctx := context.Background()
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert() returned unexpected error: %v", err)
	}

	got, err := store.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get() returned unexpected error: %v", err)
	}
	if len(got.Attachment.Data) != len(payload) {
		t.Errorf("Attachment.Data length = %d, expected %d", len(got.Attachment.Data), len(payload))
	}
}

func TestJSONLStore_CanceledContext(t *testing.T) {
	store, err := OpenJSONL(createTempFile(t, ""), testLogger())
	if err != nil {
		t.Fatalf("OpenJSONL() returned unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.List(ctx); err == nil {
		t.Error("List() with canceled context should fail")
	}
}
