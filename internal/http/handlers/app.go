// Package handlers implements the HTTP API. Handlers stay thin: decode,
// authorize, call into repositories and services, encode.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hifarrer/NuSong-sub002/internal/billing"
	"github.com/hifarrer/NuSong-sub002/internal/cache"
	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/entitlement"
	"github.com/hifarrer/NuSong-sub002/internal/infra"
	"github.com/hifarrer/NuSong-sub002/internal/infra/google"
	"github.com/hifarrer/NuSong-sub002/internal/middleware"
	"github.com/hifarrer/NuSong-sub002/internal/poller"
	"github.com/hifarrer/NuSong-sub002/internal/providers"
	"github.com/hifarrer/NuSong-sub002/internal/storage"
)

type App struct {
	SQL      infra.SQLExecutor
	Cfg      *infra.Config
	Logger   infra.Logger
	Validate *validator.Validate

	Users      domain.UserRepository
	Jobs       domain.JobRepository
	Plans      domain.PlanRepository
	Albums     domain.AlbumRepository
	Playlists  domain.PlaylistRepository
	Bands      domain.BandRepository
	ShareLinks domain.ShareLinkRepository
	Settings   domain.SettingsRepository

	Gate     *entitlement.Gate
	Tracker  *poller.Tracker
	Clients  map[domain.JobKind]providers.Client
	Trending *cache.TrendingCache
	Billing  *billing.Processor

	GoogleVerifier *google.Verifier
	// Store holds uploaded source audio for audio-to-music jobs.
	Store *storage.FileStore
	// Downloads fetches stored track audio for album archives.
	Downloads *http.Client
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]any{
		"error":   slug,
		"message": message,
	})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// domainError maps repository and service sentinels onto API responses.
// Unknown errors become a logged 500.
func (a *App) domainError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, http.StatusForbidden, "forbidden", "access denied")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, domain.ErrQuotaExceeded):
		a.error(w, http.StatusForbidden, "quota_exceeded", "monthly generation limit reached")
	case errors.Is(err, domain.ErrPlanExpired):
		a.error(w, http.StatusForbidden, "plan_expired", "billing period has ended")
	case errors.Is(err, domain.ErrPlanInactive):
		a.error(w, http.StatusForbidden, "plan_inactive", "no active subscription")
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", "invalid input")
	case errors.Is(err, domain.ErrInvalidTransition):
		a.error(w, http.StatusConflict, "conflict", "job state does not allow this operation")
	default:
		a.Logger.Error().Err(err).Str("op", op).Msg("internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	if a.Validate != nil {
		if err := a.Validate.Struct(dest); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", validationMessage(err))
			return false
		}
	}
	return true
}

func validationMessage(err error) string {
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return "invalid payload"
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		return "invalid field: " + f.Field()
	}
	return "invalid payload"
}
