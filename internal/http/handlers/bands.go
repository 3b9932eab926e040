package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
)

type bandUpsertRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Bio      string `json:"bio" validate:"omitempty,max=2000"`
	PhotoURL string `json:"photo_url" validate:"omitempty,url"`
}

// BandUpsert creates or replaces the caller's artist profile. One band per
// account.
func (a *App) BandUpsert(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req bandUpsertRequest
	if !a.decode(w, r, &req) {
		return
	}
	band := &domain.Band{
		UserID:   userID,
		Name:     req.Name,
		Bio:      req.Bio,
		PhotoURL: req.PhotoURL,
	}
	if err := a.Bands.Upsert(r.Context(), band); err != nil {
		a.domainError(w, err, "upsert band")
		return
	}
	a.json(w, http.StatusOK, bandDTO(band))
}

func (a *App) BandMine(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	band, err := a.Bands.GetByUser(r.Context(), userID)
	if err != nil {
		a.domainError(w, err, "get own band")
		return
	}
	a.json(w, http.StatusOK, bandDTO(band))
}

// BandGet is the public artist page lookup.
func (a *App) BandGet(w http.ResponseWriter, r *http.Request) {
	band, err := a.Bands.GetByID(r.Context(), chi.URLParam(r, "band_id"))
	if err != nil {
		a.domainError(w, err, "get band")
		return
	}
	a.json(w, http.StatusOK, bandDTO(band))
}

func bandDTO(band *domain.Band) map[string]any {
	return map[string]any{
		"id":        band.ID,
		"name":      band.Name,
		"bio":       band.Bio,
		"photo_url": band.PhotoURL,
	}
}
