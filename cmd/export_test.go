package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/xolan/hark/internal/entry"
	"gopkg.in/yaml.v3"
)

func TestBuildExport(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	audio := entry.NewAudio("hello", []byte("voice"), "audio/webm", now)
	text := textEntry(t, "typed", now)

	tests := []struct {
		name      string
		withAudio bool
		wantAudio string
	}{
		{"metadata only", false, ""},
		{"with audio", true, base64.StdEncoding.EncodeToString([]byte("voice"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := buildExport([]entry.Entry{audio, text}, tt.withAudio, now)

			if doc.Metadata.TotalEntries != 2 || doc.Metadata.WithAudio != tt.withAudio {
				t.Errorf("unexpected metadata %+v", doc.Metadata)
			}
			if !doc.Metadata.ExportTimestamp.Equal(now) {
				t.Errorf("expected export timestamp %v, got %v", now, doc.Metadata.ExportTimestamp)
			}
			a := doc.Entries[0]
			if a.Kind != "audio" || a.MimeType != "audio/webm" || a.AudioBytes != 5 {
				t.Errorf("unexpected audio entry %+v", a)
			}
			if a.Audio != tt.wantAudio {
				t.Errorf("expected audio %q, got %q", tt.wantAudio, a.Audio)
			}
			x := doc.Entries[1]
			if x.Kind != "text" || x.MimeType != "" || x.AudioBytes != 0 || x.Audio != "" {
				t.Errorf("unexpected text entry %+v", x)
			}
		})
	}
}

func TestExportEntries_JSON(t *testing.T) {
	env := &testEnv{}
	useDeps(t, env)
	seed(t, env.path,
		textEntry(t, "first", time.Now().Add(-time.Minute)),
		entry.NewAudio("second", []byte("voice"), "audio/ogg", time.Now()),
	)

	exportEntries(context.Background(), formatJSON, false)

	if env.stderr.Len() > 0 {
		t.Fatalf("Unexpected stderr output: %s", env.stderr.String())
	}
	var doc exportDocument
	if err := json.Unmarshal(env.stdout.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, env.stdout.String())
	}
	if doc.Metadata.TotalEntries != 2 || len(doc.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", doc.Metadata)
	}
	// newest first
	if doc.Entries[0].Content != "second" || doc.Entries[1].Content != "first" {
		t.Errorf("unexpected order: %q, %q", doc.Entries[0].Content, doc.Entries[1].Content)
	}
	if strings.Contains(env.stdout.String(), `"audio":`) {
		t.Error("expected audio to be left out")
	}
}

func TestExportEntries_YAMLWithAudio(t *testing.T) {
	env := &testEnv{}
	useDeps(t, env)
	voice := []byte{0x4f, 0x67, 0x67, 0x53, 0x00, 0xff}
	seed(t, env.path, entry.NewAudio("note", voice, "audio/ogg;codecs=opus", time.Now()))

	exportEntries(context.Background(), formatYAML, true)

	var doc exportDocument
	if err := yaml.Unmarshal(env.stdout.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, env.stdout.String())
	}
	if !doc.Metadata.WithAudio || len(doc.Entries) != 1 {
		t.Fatalf("unexpected document %+v", doc)
	}
	got, err := base64.StdEncoding.DecodeString(doc.Entries[0].Audio)
	if err != nil {
		t.Fatalf("audio is not base64: %v", err)
	}
	if !bytes.Equal(got, voice) {
		t.Errorf("audio round trip mismatch: %v != %v", got, voice)
	}
	if doc.Entries[0].MimeType != "audio/ogg;codecs=opus" {
		t.Errorf("unexpected mime type %q", doc.Entries[0].MimeType)
	}
}

func TestExportEntries_Empty(t *testing.T) {
	env := &testEnv{}
	useDeps(t, env)

	exportEntries(context.Background(), formatJSON, false)

	var doc exportDocument
	if err := json.Unmarshal(env.stdout.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc.Entries == nil || len(doc.Entries) != 0 {
		t.Errorf("expected an empty entries array, got %v", doc.Entries)
	}
}

func TestListJSON(t *testing.T) {
	env := &testEnv{}
	useDeps(t, env)
	seed(t, env.path, entry.NewAudio("spoken", []byte("voice"), "audio/webm", time.Now()))

	listJSON(context.Background())

	var out []exportedEntry
	if err := json.Unmarshal(env.stdout.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(out) != 1 || out[0].Content != "spoken" || out[0].AudioBytes != 5 {
		t.Errorf("unexpected output %+v", out)
	}
	if out[0].Audio != "" {
		t.Error("expected list output without audio")
	}
}
