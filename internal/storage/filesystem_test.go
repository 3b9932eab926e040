package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAndRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	key, err := store.Write(context.Background(), "uploads/u1/track.mp3", strings.NewReader("audio-bytes"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "uploads/u1/track.mp3" {
		t.Fatalf("unexpected key %q", key)
	}

	data, err := os.ReadFile(filepath.Join(store.BasePath(), "uploads", "u1", "track.mp3"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("unexpected contents %q", data)
	}

	entries, err := os.ReadDir(filepath.Join(store.BasePath(), "uploads", "u1"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %d entries", len(entries))
	}
}

func TestWriteRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	for _, key := range []string{"", "../escape.mp3", "a/../../escape.mp3"} {
		if _, err := store.Write(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestWriteCleansLeadingSlash(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	key, err := store.Write(context.Background(), "/covers/a.png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "covers/a.png" {
		t.Fatalf("unexpected key %q", key)
	}
}
