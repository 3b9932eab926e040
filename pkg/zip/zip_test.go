package zip

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteAlbumArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.mp3":
			w.Write([]byte("audio-a"))
		case "/b.wav":
			w.Write([]byte("audio-b"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tracks := []Track{
		{Title: "Sunrise", URL: srv.URL + "/a.mp3"},
		{Title: "Sunrise", URL: srv.URL + "/b.wav"},
		{Title: "Gone", URL: srv.URL + "/missing.mp3"},
		{Title: "Empty"},
	}

	var buf bytes.Buffer
	if err := WriteAlbumArchive(context.Background(), &buf, srv.Client(), tracks); err != nil {
		t.Fatalf("WriteAlbumArchive: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := []string{"Sunrise.mp3", "Sunrise (2).wav"}
	if len(names) != len(want) {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("entries = %v, want %v", names, want)
		}
	}
}

func TestWriteAlbumArchiveAllFetchesFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	var buf bytes.Buffer
	err := WriteAlbumArchive(context.Background(), &buf, srv.Client(), []Track{{Title: "x", URL: srv.URL + "/x"}})
	if err == nil {
		t.Fatal("expected error when no tracks fetch")
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("a/b\\c:d."); got != "a-b-c-d" {
		t.Fatalf("sanitizeFilename = %q", got)
	}
}
