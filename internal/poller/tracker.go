// Package poller drives the status polling loops for in-flight generation
// jobs. Each job owns one goroutine with its own ticker; loops share nothing
// but the job store, whose writes are scoped to a single row.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/infra"
	"github.com/hifarrer/NuSong-sub002/internal/providers"
)

// Store is the subset of the job repository the poller writes through.
type Store interface {
	RecordStatus(ctx context.Context, jobID string, update domain.JobUpdate) error
}

// ClaimRenewer is implemented by stores that lease in-flight jobs to a single
// process. The poll loop heartbeats the lease each tick; losing it means a
// competing process took the job over and this loop must stop.
type ClaimRenewer interface {
	RenewClaim(ctx context.Context, jobID, claimant string) error
}

// Options tunes the tracker.
type Options struct {
	// Interval between provider polls for one job.
	Interval time.Duration
	// MaxTransient caps consecutive transient provider failures before the
	// job is failed with a polling timeout.
	MaxTransient int
	// Claimant identifies this process for job leases. Empty disables
	// lease heartbeats.
	Claimant string
	Logger   infra.Logger
}

// Tracker owns the map from job id to its cancellable poll loop. Teardown is
// always explicit cancellation, never left to garbage collection.
type Tracker struct {
	store        Store
	clients      map[domain.JobKind]providers.Client
	interval     time.Duration
	maxTransient int
	claimant     string
	logger       infra.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// New builds a tracker over the given store and per-kind provider clients.
func New(store Store, clients map[domain.JobKind]providers.Client, opts Options) *Tracker {
	interval := opts.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	maxTransient := opts.MaxTransient
	if maxTransient <= 0 {
		maxTransient = 150
	}
	return &Tracker{
		store:        store,
		clients:      clients,
		interval:     interval,
		maxTransient: maxTransient,
		claimant:     opts.Claimant,
		logger:       opts.Logger,
		active:       make(map[string]context.CancelFunc),
	}
}

// Track starts a poll loop for the job. It reports false when the job is
// already tracked, has no external id, or no client serves its kind, so a
// duplicate Track (same job viewed twice) is a harmless no-op.
func (t *Tracker) Track(job domain.GenerationJob) bool {
	if job.ExternalJobID == "" || job.Status.Terminal() {
		return false
	}
	client, ok := t.clients[job.Kind]
	if !ok {
		t.logger.Warn().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("poller: no client for kind")
		return false
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	if _, exists := t.active[job.ID]; exists {
		t.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.active[job.ID] = cancel
	t.wg.Add(1)
	t.mu.Unlock()

	go t.poll(ctx, job, client)
	return true
}

// Untrack cancels the poll loop for the job, if any. The external job keeps
// processing provider-side; a later Track re-attaches from stored state.
func (t *Tracker) Untrack(jobID string) {
	t.mu.Lock()
	cancel, ok := t.active[jobID]
	if ok {
		delete(t.active, jobID)
	}
	t.mu.Unlock()
	if ok {
		cancel()
	}
}

// Tracking reports whether a loop is live for the job id.
func (t *Tracker) Tracking(jobID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[jobID]
	return ok
}

// Shutdown cancels every loop and waits for them to exit.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	t.closed = true
	for id, cancel := range t.active {
		cancel()
		delete(t.active, id)
	}
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Tracker) poll(ctx context.Context, job domain.GenerationJob, client providers.Client) {
	defer t.wg.Done()
	defer t.Untrack(job.ID)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	lastState := providers.StateSubmitted
	if job.Status == domain.JobStatusProcessing {
		lastState = providers.StateProcessing
	}
	transient := 0
	renewer, renewing := t.store.(ClaimRenewer)
	renewing = renewing && t.claimant != ""

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if renewing {
			if err := renewer.RenewClaim(ctx, job.ID, t.claimant); err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, domain.ErrNotFound) {
					t.logger.Info().Str("job_id", job.ID).Msg("poller: lease lost, stopping loop")
					return
				}
				t.logger.Warn().Err(err).Str("job_id", job.ID).Msg("poller: lease renewal failed")
			}
		}

		status, err := client.Status(ctx, job.ExternalJobID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, providers.ErrUnavailable) || errors.Is(err, providers.ErrQuotaExhausted) {
				transient++
				if transient < t.maxTransient {
					continue
				}
				t.logger.Error().Str("job_id", job.ID).Int("attempts", transient).Msg("poller: giving up after repeated provider failures")
				t.finish(ctx, job.ID, domain.JobUpdate{
					Status:       domain.JobStatusFailed,
					ErrorMessage: "status polling timed out",
				})
				return
			}
			// Permanent client-side failure: the provider saw and rejected
			// the status call.
			t.finish(ctx, job.ID, domain.JobUpdate{
				Status:       domain.JobStatusFailed,
				ErrorMessage: "status check rejected by provider",
			})
			return
		}
		transient = 0

		switch status.State {
		case providers.StateSubmitted:
			// Still queued provider-side; nothing to record.
		case providers.StateProcessing:
			if lastState != providers.StateProcessing {
				if err := t.store.RecordStatus(ctx, job.ID, domain.JobUpdate{Status: domain.JobStatusProcessing}); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
					t.logger.Error().Err(err).Str("job_id", job.ID).Msg("poller: record processing failed")
				}
				lastState = providers.StateProcessing
			}
		case providers.StateCompleted:
			t.finish(ctx, job.ID, domain.JobUpdate{
				Status:    domain.JobStatusCompleted,
				ResultURL: status.ResultURL,
				ImageURL:  status.ImageURL,
			})
			return
		case providers.StateFailed:
			t.finish(ctx, job.ID, domain.JobUpdate{
				Status:       domain.JobStatusFailed,
				ErrorMessage: status.Error,
			})
			return
		}
	}
}

// finish applies the terminal write. A concurrent loop for the same job may
// have won the race; the transition guard reports that as ErrInvalidTransition
// and it is treated as success.
func (t *Tracker) finish(ctx context.Context, jobID string, update domain.JobUpdate) {
	writeCtx := ctx
	if ctx.Err() != nil {
		return
	}
	if err := t.store.RecordStatus(writeCtx, jobID, update); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		t.logger.Error().Err(err).Str("job_id", jobID).Str("status", string(update.Status)).Msg("poller: terminal write failed")
		return
	}
	t.logger.Info().Str("job_id", jobID).Str("status", string(update.Status)).Msg("poller: job reached terminal state")
}
