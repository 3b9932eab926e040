package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hifarrer/NuSong-sub002/internal/middleware"
	"github.com/hifarrer/NuSong-sub002/internal/sqlinline"
)

const galleryLimit = 50

type galleryTrackDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ResultURL string    `json:"result_url"`
	ImageURL  string    `json:"image_url,omitempty"`
	BandName  string    `json:"band_name,omitempty"`
	Plays     int64     `json:"plays"`
	CreatedAt time.Time `json:"created_at"`
}

// Gallery lists public completed tracks ordered by play count. The listing is
// served from redis when it is warm.
func (a *App) Gallery(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), galleryLimit, 100)

	// Only the default page is cached; custom limits go to the database.
	var items []galleryTrackDTO
	if limit == galleryLimit && a.Trending.Get(r.Context(), &items) {
		a.json(w, http.StatusOK, map[string]any{"items": items, "cached": true})
		return
	}

	rows, err := a.SQL.Query(r.Context(), sqlinline.QListPublicTracks, limit)
	if err != nil {
		a.domainError(w, err, "list gallery")
		return
	}
	defer rows.Close()
	items = make([]galleryTrackDTO, 0, limit)
	for rows.Next() {
		var t galleryTrackDTO
		var userID string
		if err := rows.Scan(&t.ID, &userID, &t.Title, &t.ResultURL, &t.ImageURL, &t.BandName, &t.Plays, &t.CreatedAt); err != nil {
			a.domainError(w, err, "scan gallery")
			return
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		a.domainError(w, err, "list gallery")
		return
	}

	if limit == galleryLimit {
		a.Trending.Set(r.Context(), items)
	}
	a.json(w, http.StatusOK, map[string]any{"items": items, "cached": false})
}

// TrackPlay records one playback of a public track along with the listener's
// country. Plays against unknown or unfinished tracks are dropped silently.
func (a *App) TrackPlay(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	country := middleware.CountryFromContext(r.Context())
	tag, err := a.SQL.Exec(r.Context(), sqlinline.QInsertPlayEvent, jobID, country)
	if err != nil {
		a.domainError(w, err, "record play")
		return
	}
	if tag.RowsAffected() > 0 {
		a.Trending.Invalidate(r.Context())
	}
	w.WriteHeader(http.StatusAccepted)
}

// AdminStats summarizes platform activity for the admin dashboard.
func (a *App) AdminStats(w http.ResponseWriter, r *http.Request) {
	row := a.SQL.QueryRow(r.Context(), sqlinline.QAdminStatsSummary)
	var users, completedTracks, failedJobs, inFlight, jobs24h, plays24h int64
	if err := row.Scan(&users, &completedTracks, &failedJobs, &inFlight, &jobs24h, &plays24h); err != nil {
		a.domainError(w, err, "admin stats")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"users":            users,
		"completed_tracks": completedTracks,
		"failed_jobs":      failedJobs,
		"in_flight_jobs":   inFlight,
		"jobs_24h":         jobs24h,
		"plays_24h":        plays24h,
		"generated_at":     time.Now().UTC().Format(time.RFC3339),
	})
}

// SiteSetting exposes a single public runtime setting, such as the
// announcement banner.
func (a *App) SiteSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := a.Settings.Get(r.Context(), key)
	if err != nil {
		a.domainError(w, err, "get setting")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func parseLimit(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	if n > max {
		return max
	}
	return n
}
