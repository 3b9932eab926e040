package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
)

type playlistCreateRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

func (a *App) PlaylistsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req playlistCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	playlist := &domain.Playlist{UserID: userID, Title: req.Title}
	if err := a.Playlists.Create(r.Context(), playlist); err != nil {
		a.domainError(w, err, "create playlist")
		return
	}
	a.json(w, http.StatusCreated, playlistDTO(playlist))
}

func (a *App) PlaylistsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	playlists, err := a.Playlists.ListByOwner(r.Context(), userID)
	if err != nil {
		a.domainError(w, err, "list playlists")
		return
	}
	items := make([]map[string]any, 0, len(playlists))
	for i := range playlists {
		items = append(items, playlistDTO(&playlists[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) PlaylistGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	playlist, err := a.Playlists.Get(r.Context(), chi.URLParam(r, "playlist_id"), userID)
	if err != nil {
		a.domainError(w, err, "get playlist")
		return
	}
	a.json(w, http.StatusOK, playlistDTO(playlist))
}

type playlistTrackRequest struct {
	JobID string `json:"job_id" validate:"required,uuid"`
}

func (a *App) PlaylistAddTrack(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req playlistTrackRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.Playlists.AddTrack(r.Context(), chi.URLParam(r, "playlist_id"), userID, req.JobID); err != nil {
		a.domainError(w, err, "add playlist track")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) PlaylistRemoveTrack(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if err := a.Playlists.RemoveTrack(r.Context(), chi.URLParam(r, "playlist_id"), userID, chi.URLParam(r, "job_id")); err != nil {
		a.domainError(w, err, "remove playlist track")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func playlistDTO(playlist *domain.Playlist) map[string]any {
	trackIDs := playlist.TrackIDs
	if trackIDs == nil {
		trackIDs = []string{}
	}
	return map[string]any{
		"id":         playlist.ID,
		"title":      playlist.Title,
		"track_ids":  trackIDs,
		"created_at": playlist.CreatedAt.UTC().Format(time.RFC3339),
	}
}
