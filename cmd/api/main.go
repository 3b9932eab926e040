package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/hifarrer/NuSong-sub002/internal/adapter/repo"
	"github.com/hifarrer/NuSong-sub002/internal/billing"
	"github.com/hifarrer/NuSong-sub002/internal/cache"
	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/entitlement"
	"github.com/hifarrer/NuSong-sub002/internal/http/handlers"
	"github.com/hifarrer/NuSong-sub002/internal/http/httpapi"
	"github.com/hifarrer/NuSong-sub002/internal/infra"
	"github.com/hifarrer/NuSong-sub002/internal/infra/geoip"
	"github.com/hifarrer/NuSong-sub002/internal/infra/google"
	"github.com/hifarrer/NuSong-sub002/internal/middleware"
	"github.com/hifarrer/NuSong-sub002/internal/poller"
	"github.com/hifarrer/NuSong-sub002/internal/providers"
	"github.com/hifarrer/NuSong-sub002/internal/providers/fal"
	"github.com/hifarrer/NuSong-sub002/internal/providers/kie"
	"github.com/hifarrer/NuSong-sub002/internal/providers/mux"
	"github.com/hifarrer/NuSong-sub002/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "nusong-api")

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)

	clients := buildProviderClients(cfg, logger)
	jobs := repo.NewJobRepository(runner)
	claimant := "api-" + uuid.NewString()
	tracker := poller.New(jobs, clients, poller.Options{
		Interval:     cfg.PollInterval,
		MaxTransient: cfg.PollMaxTransient,
		Claimant:     claimant,
		Logger:       logger,
	})

	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	if redisClient != nil {
		defer redisClient.Close()
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Warn().Err(err).Msg("file store unavailable, uploads disabled")
		store = nil
	}

	var countryLookup middleware.CountryLookup
	if cfg.GeoIPDBPath != "" {
		resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn().Err(err).Msg("geoip database unavailable, country resolution disabled")
		} else {
			countryLookup = resolver.CountryCode
		}
	}

	app := &handlers.App{
		SQL:      runner,
		Cfg:      cfg,
		Logger:   logger,
		Validate: validator.New(validator.WithRequiredStructEnabled()),

		Users:      repo.NewUserRepository(runner),
		Jobs:       jobs,
		Plans:      repo.NewPlanRepository(runner),
		Albums:     repo.NewAlbumRepository(runner),
		Playlists:  repo.NewPlaylistRepository(runner),
		Bands:      repo.NewBandRepository(runner),
		ShareLinks: repo.NewShareLinkRepository(runner),
		Settings:   repo.NewSettingsRepository(runner),

		Gate:     entitlement.NewGate(runner),
		Tracker:  tracker,
		Clients:  clients,
		Trending: cache.NewTrendingCache(redisClient, cfg.TrendingTTL, logger),
		Billing:  billing.NewProcessor(runner, cfg.BillingWebhookSecret, cfg.BillingTolerance, logger),

		GoogleVerifier: google.NewVerifier(cfg.GoogleIssuer, cfg.GoogleClientID),
		Store:          store,
		Downloads:      &http.Client{Timeout: 60 * time.Second},
	}

	// Re-attach poll loops for jobs that were in flight when the previous
	// process stopped. Claiming, not listing: jobs leased to a live worker
	// stay with it.
	reattachInFlight(ctx, jobs, tracker, claimant, logger)

	router := httpapi.NewRouter(app, countryLookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	tracker.Shutdown()
	logger.Info().Msg("server stopped")
}

func buildProviderClients(cfg *infra.Config, logger infra.Logger) map[domain.JobKind]providers.Client {
	clients := make(map[domain.JobKind]providers.Client)

	if music, err := kie.NewClient(kie.Options{
		APIKey:  cfg.KieAPIKey,
		BaseURL: cfg.KieBaseURL,
		Logger:  &logger,
	}); err != nil {
		logger.Warn().Err(err).Msg("music provider disabled")
	} else {
		clients[domain.JobKindTextToMusic] = music
		clients[domain.JobKindAudioToMusic] = music
	}

	if images, err := fal.NewClient(fal.Options{
		APIKey:  cfg.FalAPIKey,
		BaseURL: cfg.FalBaseURL,
		Logger:  &logger,
	}); err != nil {
		logger.Warn().Err(err).Msg("image provider disabled")
	} else {
		clients[domain.JobKindImage] = images
	}

	if videos, err := mux.NewClient(mux.Options{
		TokenID:     cfg.MuxTokenID,
		TokenSecret: cfg.MuxSecret,
		BaseURL:     cfg.MuxBaseURL,
		Logger:      &logger,
	}); err != nil {
		logger.Warn().Err(err).Msg("video provider disabled")
	} else {
		clients[domain.JobKindVideoTranscode] = videos
	}

	return clients
}

func reattachInFlight(ctx context.Context, jobs domain.JobRepository, tracker *poller.Tracker, claimant string, logger infra.Logger) {
	inFlight, err := jobs.ClaimInFlight(ctx, claimant, 500)
	if err != nil {
		logger.Error().Err(err).Msg("failed to claim in-flight jobs")
		return
	}
	attached := 0
	for _, job := range inFlight {
		if tracker.Track(job) {
			attached++
		}
	}
	if attached > 0 {
		logger.Info().Int("count", attached).Msg("re-attached in-flight jobs")
	}
}
