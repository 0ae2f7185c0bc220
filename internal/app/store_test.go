package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleSessions() map[string]ChatSession {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := Message{
		ID:      "m-1",
		Role:    RoleAssistant,
		Content: "v1",
		Steps:   []StepRecord{{Kind: "think", Title: "Thinking", Detail: "…"}},
		Versions: []MessageVersion{
			{Content: "v0", Timestamp: now},
			{Content: "v1", Timestamp: now.Add(time.Minute)},
		},
		CurrentVersionIndex: 1,
		Suggestions:         []string{"next?"},
		CreatedAt:           now,
	}
	return map[string]ChatSession{
		"s-1": {
			ID:        "s-1",
			Title:     "with versions",
			Messages:  []Message{msg},
			CreatedAt: now,
			UpdatedAt: now.Add(time.Minute),
		},
		"s-2": {
			ID:        "s-2",
			Title:     "empty",
			Messages:  []Message{},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func assertSessionsEqual(t *testing.T, got map[string]ChatSession) {
	t.Helper()
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	sess, ok := got["s-1"]
	if !ok {
		t.Fatal("session s-1 missing")
	}
	if sess.Title != "with versions" || len(sess.Messages) != 1 {
		t.Fatalf("unexpected session: %+v", sess)
	}
	msg := sess.Messages[0]
	if len(msg.Versions) != 2 || msg.CurrentVersionIndex != 1 || msg.Content != "v1" {
		t.Fatalf("version state lost: %+v", msg)
	}
	if len(msg.Steps) != 1 || msg.Steps[0].Kind != "think" {
		t.Fatalf("steps lost: %+v", msg.Steps)
	}
	if len(msg.Suggestions) != 1 {
		t.Fatalf("suggestions lost: %+v", msg.Suggestions)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.SaveSessions(sampleSessions()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := store.LoadSessions()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	assertSessionsEqual(t, got)
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(t.TempDir())
	got, err := store.LoadSessions()
	if err != nil {
		t.Fatalf("load of missing file failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(got))
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "sessions.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(root).LoadSessions(); err == nil {
		t.Fatal("expected an error for corrupt data")
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.SaveSessions(sampleSessions()); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSessions(map[string]ChatSession{}); err != nil {
		t.Fatal(err)
	}
	got, err := store.LoadSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("old snapshot survived overwrite: %d entries", len(got))
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer store.Close()

	if err := store.SaveSessions(sampleSessions()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := store.LoadSessions()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	assertSessionsEqual(t, got)
}

func TestSQLiteStoreSaveReplacesSnapshot(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.SaveSessions(sampleSessions()); err != nil {
		t.Fatal(err)
	}
	only := map[string]ChatSession{"s-2": sampleSessions()["s-2"]}
	if err := store.SaveSessions(only); err != nil {
		t.Fatal(err)
	}
	got, err := store.LoadSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 session after replace, got %d", len(got))
	}
	if _, ok := got["s-1"]; ok {
		t.Fatal("removed session survived the snapshot replace")
	}
}

func TestOpenStoreBackends(t *testing.T) {
	root := t.TempDir()

	store, err := OpenStore("file", root)
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	if _, ok := store.(*FileStore); !ok {
		t.Fatalf("expected *FileStore, got %T", store)
	}

	store, err = OpenStore("sqlite", root)
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	sq, ok := store.(*SQLiteStore)
	if !ok {
		t.Fatalf("expected *SQLiteStore, got %T", store)
	}
	sq.Close()

	// Anything unrecognized falls back to the file backend, matching the
	// config layer's clamp.
	store, err = OpenStore("", root)
	if err != nil {
		t.Fatalf("default backend: %v", err)
	}
	if _, ok := store.(*FileStore); !ok {
		t.Fatalf("expected *FileStore fallback, got %T", store)
	}
}
