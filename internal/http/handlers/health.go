package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/hifarrer/NuSong-sub002/internal/sqlinline"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var one int
	if err := a.SQL.QueryRow(ctx, sqlinline.QHealthPing).Scan(&one); err != nil {
		a.Logger.Error().Err(err).Msg("health: database ping failed")
		a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "down"})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
