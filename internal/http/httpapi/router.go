// Package httpapi wires the route table onto the handler set.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hifarrer/NuSong-sub002/internal/http/handlers"
	"github.com/hifarrer/NuSong-sub002/internal/middleware"
)

func NewRouter(app *handlers.App, countryLookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Cfg.AllowedOrigins),
		middleware.Locale("en", countryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Post("/v1/auth/google", app.AuthGoogleVerify)
	r.Get("/v1/plans", app.PlansList)
	r.Get("/v1/gallery", app.Gallery)
	r.Get("/v1/shared/{token}", app.SharedAlbum)
	r.Get("/v1/bands/{band_id}", app.BandGet)
	r.Get("/v1/settings/{key}", app.SiteSetting)
	r.Post("/v1/billing/webhook", app.BillingWebhook)

	if app.Store != nil {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(app.Store.BasePath())))
		r.Get("/static/*", fs.ServeHTTP)
	}

	// Anonymous but abuse-prone.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute))
		r.Post("/v1/tracks/{job_id}/plays", app.TrackPlay)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.Cfg.JWTSecret))

		r.Get("/v1/me", app.Me)
		r.Get("/v1/me/usage", app.MeUsage)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute))
			r.Post("/v1/uploads", app.Upload)
			r.Post("/v1/music", app.MusicGenerate)
			r.Post("/v1/music/audio", app.MusicFromAudio)
			r.Post("/v1/images", app.ImagesGenerate)
			r.Post("/v1/videos", app.VideosTranscode)
		})

		r.Get("/v1/jobs", app.JobsList)
		r.Get("/v1/jobs/{job_id}", app.JobStatus)
		r.Patch("/v1/jobs/{job_id}", app.JobUpdateMetadata)

		r.Route("/v1/albums", func(r chi.Router) {
			r.Post("/", app.AlbumsCreate)
			r.Get("/", app.AlbumsList)
			r.Get("/{album_id}", app.AlbumGet)
			r.Get("/{album_id}/download", app.AlbumDownload)
			r.Post("/{album_id}/share", app.AlbumShare)
			r.Delete("/{album_id}/share", app.AlbumUnshare)
		})

		r.Route("/v1/playlists", func(r chi.Router) {
			r.Post("/", app.PlaylistsCreate)
			r.Get("/", app.PlaylistsList)
			r.Get("/{playlist_id}", app.PlaylistGet)
			r.Post("/{playlist_id}/tracks", app.PlaylistAddTrack)
			r.Delete("/{playlist_id}/tracks/{job_id}", app.PlaylistRemoveTrack)
		})

		r.Put("/v1/bands/me", app.BandUpsert)
		r.Get("/v1/bands/me", app.BandMine)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Get("/v1/admin/stats", app.AdminStats)
		})
	})

	return r
}
