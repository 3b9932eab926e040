// Command worker runs the status polling loops outside the API process. It
// periodically claims in-flight jobs whose lease is absent or expired and
// attaches a poll loop to each; jobs leased to a live process are skipped,
// so running the worker next to the API (or a second worker) never doubles
// the polling of one job.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/hifarrer/NuSong-sub002/internal/adapter/repo"
	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/infra"
	"github.com/hifarrer/NuSong-sub002/internal/poller"
	"github.com/hifarrer/NuSong-sub002/internal/providers"
	"github.com/hifarrer/NuSong-sub002/internal/providers/fal"
	"github.com/hifarrer/NuSong-sub002/internal/providers/kie"
	"github.com/hifarrer/NuSong-sub002/internal/providers/mux"
)

const scanInterval = 15 * time.Second
const scanBatch = 500

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "nusong-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	jobs := repo.NewJobRepository(runner)
	claimant := "worker-" + uuid.NewString()
	tracker := poller.New(jobs, buildProviderClients(cfg, logger), poller.Options{
		Interval:     cfg.PollInterval,
		MaxTransient: cfg.PollMaxTransient,
		Claimant:     claimant,
		Logger:       logger,
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	logger.Info().Dur("scan_interval", scanInterval).Msg("worker started")
	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	scan(ctx, jobs, tracker, claimant, logger)
	for {
		select {
		case <-stop:
			logger.Info().Msg("worker stopping")
			cancel()
			tracker.Shutdown()
			return
		case <-ticker.C:
			scan(ctx, jobs, tracker, claimant, logger)
		}
	}
}

func scan(ctx context.Context, jobs domain.JobRepository, tracker *poller.Tracker, claimant string, logger infra.Logger) {
	inFlight, err := jobs.ClaimInFlight(ctx, claimant, scanBatch)
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
		logger.Info().Int("count", attached).Msg("attached poll loops")
	}
}

func buildProviderClients(cfg *infra.Config, logger infra.Logger) map[domain.JobKind]providers.Client {
	clients := make(map[domain.JobKind]providers.Client)

	if music, err := kie.NewClient(kie.Options{APIKey: cfg.KieAPIKey, BaseURL: cfg.KieBaseURL, Logger: &logger}); err != nil {
		logger.Warn().Err(err).Msg("music provider disabled")
	} else {
		clients[domain.JobKindTextToMusic] = music
		clients[domain.JobKindAudioToMusic] = music
	}
	if images, err := fal.NewClient(fal.Options{APIKey: cfg.FalAPIKey, BaseURL: cfg.FalBaseURL, Logger: &logger}); err != nil {
		logger.Warn().Err(err).Msg("image provider disabled")
	} else {
		clients[domain.JobKindImage] = images
	}
	if videos, err := mux.NewClient(mux.Options{TokenID: cfg.MuxTokenID, TokenSecret: cfg.MuxSecret, BaseURL: cfg.MuxBaseURL, Logger: &logger}); err != nil {
		logger.Warn().Err(err).Msg("video provider disabled")
	} else {
		clients[domain.JobKindVideoTranscode] = videos
	}
	return clients
}
