package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FILM6912/Agent-UI-sub001/internal/app"
)

func sampleSession() *app.ChatSession {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &app.ChatSession{
		ID:    "s-1",
		Title: "Exported chat",
		Messages: []app.Message{
			{
				ID:      "m-1",
				Role:    app.RoleUser,
				Content: "what is a goroutine?",
				Attachments: []app.Attachment{
					{Name: "notes.txt", Content: "some context"},
				},
				Versions:  []app.MessageVersion{{Content: "what is a goroutine?", Timestamp: now}},
				CreatedAt: now,
			},
			{
				ID:      "m-2",
				Role:    app.RoleAssistant,
				Content: "A lightweight thread.",
				Steps:   []app.StepRecord{{Kind: "think", Title: "Thinking"}},
				Versions: []app.MessageVersion{
					{Content: "First take.", Timestamp: now},
					{Content: "A lightweight thread.", Timestamp: now.Add(time.Minute)},
				},
				CurrentVersionIndex: 1,
				CreatedAt:           now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now.Add(time.Minute),
	}
}

func TestNewExporterFormats(t *testing.T) {
	cases := map[string]string{
		"json":     "json",
		"yaml":     "yaml",
		"md":       "md",
		"markdown": "md",
	}
	for format, ext := range cases {
		exp, err := NewExporter(format)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if exp.Extension() != ext {
			t.Fatalf("%s: extension %q, want %q", format, exp.Extension(), ext)
		}
	}

	if _, err := NewExporter("pdf"); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestJSONExportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(sampleSession(), &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var got app.ChatSession
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if got.ID != "s-1" || len(got.Messages) != 2 {
		t.Fatalf("unexpected round trip: %+v", got)
	}
	if got.Messages[1].CurrentVersionIndex != 1 || len(got.Messages[1].Versions) != 2 {
		t.Fatalf("version state lost: %+v", got.Messages[1])
	}
}

func TestYAMLExportParses(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLExporter{}).Export(sampleSession(), &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var got map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid yaml: %v", err)
	}
	if got["title"] != "Exported chat" {
		t.Fatalf("title missing from yaml: %v", got["title"])
	}
}

func TestMarkdownExport(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(sampleSession(), &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Exported chat",
		"**Session:** s-1",
		"**user:**",
		"what is a goroutine?",
		"**assistant (version 2/2):**",
		"A lightweight thread.",
		"> attachment: notes.txt",
		"> think: Thinking",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("markdown missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "First take.") {
		t.Fatalf("inactive version leaked into the export:\n%s", out)
	}
}
