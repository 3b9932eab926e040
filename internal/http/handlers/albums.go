package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/pkg/zip"
)

type albumCreateRequest struct {
	Title      string `json:"title" validate:"required,max=200"`
	CoverURL   string `json:"cover_url" validate:"omitempty,url"`
	Visibility string `json:"visibility" validate:"omitempty,oneof=public private"`
}

func (a *App) AlbumsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req albumCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	album := &domain.Album{
		UserID:     userID,
		Title:      req.Title,
		CoverURL:   req.CoverURL,
		Visibility: domain.Visibility(req.Visibility),
	}
	if err := a.Albums.Create(r.Context(), album); err != nil {
		a.domainError(w, err, "create album")
		return
	}
	a.json(w, http.StatusCreated, albumDTO(album))
}

func (a *App) AlbumsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	albums, err := a.Albums.ListByOwner(r.Context(), userID)
	if err != nil {
		a.domainError(w, err, "list albums")
		return
	}
	items := make([]map[string]any, 0, len(albums))
	for i := range albums {
		items = append(items, albumDTO(&albums[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) AlbumGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	album, tracks, err := a.loadAlbumWithTracks(r, chi.URLParam(r, "album_id"), userID)
	if err != nil {
		a.domainError(w, err, "get album")
		return
	}
	a.json(w, http.StatusOK, albumWithTracksDTO(album, tracks))
}

// AlbumDownload streams the album's completed tracks as a zip archive.
func (a *App) AlbumDownload(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	album, tracks, err := a.loadAlbumWithTracks(r, chi.URLParam(r, "album_id"), userID)
	if err != nil {
		a.domainError(w, err, "download album")
		return
	}

	entries := make([]zip.Track, 0, len(tracks))
	for _, track := range tracks {
		if track.Status != domain.JobStatusCompleted {
			continue
		}
		entries = append(entries, zip.Track{Title: track.Title, URL: track.ResultURL})
	}
	if len(entries) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "album has no downloadable tracks")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", album.Title+".zip"))
	if err := zip.WriteAlbumArchive(r.Context(), w, a.Downloads, entries); err != nil {
		// Headers may already be out; just log.
		a.Logger.Error().Err(err).Str("album_id", album.ID).Msg("album archive failed")
	}
}

// AlbumShare mints an opaque share token for a private album.
func (a *App) AlbumShare(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	albumID := chi.URLParam(r, "album_id")
	link := &domain.ShareLink{
		Token:   newShareToken(),
		AlbumID: albumID,
		UserID:  userID,
	}
	if err := a.ShareLinks.Create(r.Context(), link); err != nil {
		a.domainError(w, err, "create share link")
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"token": link.Token,
		"url":   "/v1/shared/" + link.Token,
	})
}

func (a *App) AlbumUnshare(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if err := a.ShareLinks.DeleteByAlbum(r.Context(), chi.URLParam(r, "album_id"), userID); err != nil {
		a.domainError(w, err, "delete share link")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SharedAlbum resolves a share token without authentication. The token grants
// read access to the album it was minted for, regardless of visibility.
func (a *App) SharedAlbum(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "token required")
		return
	}
	link, err := a.ShareLinks.GetByToken(r.Context(), token)
	if err != nil {
		a.domainError(w, err, "resolve share link")
		return
	}
	// Read as the link owner so private albums resolve.
	album, err := a.Albums.Get(r.Context(), link.AlbumID, link.UserID)
	if err != nil {
		a.domainError(w, err, "get shared album")
		return
	}
	tracks, err := a.Albums.ListTracks(r.Context(), album.ID)
	if err != nil {
		a.domainError(w, err, "list shared tracks")
		return
	}
	a.json(w, http.StatusOK, albumWithTracksDTO(album, tracks))
}

func (a *App) loadAlbumWithTracks(r *http.Request, albumID, requesterID string) (*domain.Album, []domain.GenerationJob, error) {
	if albumID == "" {
		return nil, nil, domain.ErrInvalidInput
	}
	album, err := a.Albums.Get(r.Context(), albumID, requesterID)
	if err != nil {
		return nil, nil, err
	}
	tracks, err := a.Albums.ListTracks(r.Context(), album.ID)
	if err != nil {
		return nil, nil, err
	}
	return album, tracks, nil
}

func newShareToken() string {
	buf := make([]byte, 24)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func albumDTO(album *domain.Album) map[string]any {
	return map[string]any{
		"id":          album.ID,
		"title":       album.Title,
		"cover_url":   album.CoverURL,
		"visibility":  string(album.Visibility),
		"track_count": album.TrackCount,
		"created_at":  album.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func albumWithTracksDTO(album *domain.Album, tracks []domain.GenerationJob) map[string]any {
	out := albumDTO(album)
	items := make([]map[string]any, 0, len(tracks))
	for i := range tracks {
		items = append(items, jobDTO(&tracks[i]))
	}
	out["tracks"] = items
	return out
}
