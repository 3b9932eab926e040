// Package zip builds track archives for album downloads.
package zip

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Track is one archive entry fetched from its stored result URL.
type Track struct {
	Title string
	URL   string
}

// WriteAlbumArchive streams a zip of the given tracks to w. Tracks whose
// download fails are skipped so one dead URL does not break the whole album;
// the archive fails only when nothing could be fetched.
func WriteAlbumArchive(ctx context.Context, w io.Writer, client *http.Client, tracks []Track) error {
	if client == nil {
		client = http.DefaultClient
	}
	zw := zip.NewWriter(w)
	written := 0
	seen := make(map[string]int)
	for _, track := range tracks {
		if track.URL == "" {
			continue
		}
		data, err := fetch(ctx, client, track.URL)
		if err != nil {
			continue
		}
		entry, err := zw.Create(entryName(track, seen))
		if err != nil {
			return fmt.Errorf("zip: create entry: %w", err)
		}
		if _, err := entry.Write(data); err != nil {
			return fmt.Errorf("zip: write entry: %w", err)
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zip: close archive: %w", err)
	}
	if written == 0 && len(tracks) > 0 {
		return fmt.Errorf("zip: no tracks could be fetched")
	}
	return nil
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zip: fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func entryName(track Track, seen map[string]int) string {
	name := sanitizeFilename(track.Title)
	if name == "" {
		name = "track"
	}
	ext := urlExtension(track.URL)
	base := name
	seen[base]++
	if n := seen[base]; n > 1 {
		name = fmt.Sprintf("%s (%d)", name, n)
	}
	return name + ext
}

func sanitizeFilename(title string) string {
	title = strings.TrimSpace(title)
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "\x00", "")
	title = replacer.Replace(title)
	return strings.Trim(title, ". ")
}

func urlExtension(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	if i := strings.LastIndex(url, "."); i >= 0 {
		ext := url[i:]
		if len(ext) <= 6 && !strings.Contains(ext, "/") {
			return ext
		}
	}
	return ".mp3"
}
