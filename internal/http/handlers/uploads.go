package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const maxUploadBytes = 25 << 20

var allowedUploadExt = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".ogg":  true,
	".flac": true,
}

// Upload accepts an audio file and stores it for use as an audio-to-music
// source. The response URL is what clients pass as source_url.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if a.Store == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "uploads not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExt[ext] {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported audio format")
		return
	}

	key := "uploads/" + userID + "/" + uuid.NewString() + ext
	storedKey, err := a.Store.Write(r.Context(), key, file)
	if err != nil {
		a.Logger.Error().Err(err).Msg("upload write failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store upload")
		return
	}

	a.json(w, http.StatusCreated, map[string]string{
		"key": storedKey,
		"url": strings.TrimRight(a.Cfg.StorageBaseURL, "/") + "/" + storedKey,
	})
}
