package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/infra"
	"github.com/hifarrer/NuSong-sub002/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on top of the SQL runner.
// All transition guards live in the SQL itself: a guarded UPDATE that matches
// zero rows signals either a missing job or an illegal transition, which is
// then disambiguated with a single status read.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new job record in the pending state.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.GenerationJob) error {
	if !job.Kind.Valid() {
		return fmt.Errorf("job kind %q: %w", job.Kind, domain.ErrInvalidInput)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Visibility == "" {
		job.Visibility = domain.VisibilityPrivate
	}
	input := job.InputJSON
	if len(input) == 0 {
		input = []byte("{}")
	}
	job.Status = domain.JobStatusPending
	_, err := r.sql.Exec(ctx, sqlinline.QInsertJob, job.ID, job.UserID, string(job.Kind), job.Title, input, string(job.Visibility))
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// RecordSubmitted transitions pending -> submitted and stores the external id.
func (r *JobRepositoryPG) RecordSubmitted(ctx context.Context, jobID, externalJobID string) error {
	row := r.sql.QueryRow(ctx, sqlinline.QRecordJobSubmitted, jobID, externalJobID)
	var id string
	if err := row.Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			// Duplicate submissions must not overwrite the stored external
			// id, so any non-pending state is rejected outright.
			if _, lookupErr := r.currentStatus(ctx, jobID); lookupErr != nil {
				return lookupErr
			}
			return domain.ErrInvalidTransition
		}
		return fmt.Errorf("record submitted: %w", err)
	}
	return nil
}

// RecordStatus applies one observed provider state. Terminal states are
// write-once; a repeated processing observation is a no-op so polling does not
// amplify updated_at writes.
func (r *JobRepositoryPG) RecordStatus(ctx context.Context, jobID string, update domain.JobUpdate) error {
	switch update.Status {
	case domain.JobStatusSubmitted:
		// The provider still reports queued; nothing new to record.
		return nil
	case domain.JobStatusProcessing:
		row := r.sql.QueryRow(ctx, sqlinline.QRecordJobProcessing, jobID)
		var id string
		if err := row.Scan(&id); err != nil {
			if infra.IsNoRows(err) {
				current, lookupErr := r.currentStatus(ctx, jobID)
				if lookupErr != nil {
					return lookupErr
				}
				if current == domain.JobStatusProcessing {
					return nil
				}
				return domain.ErrInvalidTransition
			}
			return fmt.Errorf("record processing: %w", err)
		}
		return nil
	case domain.JobStatusCompleted:
		if update.ResultURL == "" {
			return fmt.Errorf("completed status without result: %w", domain.ErrInvalidInput)
		}
		row := r.sql.QueryRow(ctx, sqlinline.QRecordJobCompleted, jobID, update.ResultURL, update.ImageURL)
		var id string
		if err := row.Scan(&id); err != nil {
			if infra.IsNoRows(err) {
				return r.transitionFailure(ctx, jobID, domain.JobStatusCompleted)
			}
			return fmt.Errorf("record completed: %w", err)
		}
		return nil
	case domain.JobStatusFailed:
		msg := update.ErrorMessage
		if msg == "" {
			msg = "generation failed"
		}
		row := r.sql.QueryRow(ctx, sqlinline.QRecordJobFailed, jobID, msg)
		var id string
		if err := row.Scan(&id); err != nil {
			if infra.IsNoRows(err) {
				return r.transitionFailure(ctx, jobID, domain.JobStatusFailed)
			}
			return fmt.Errorf("record failed: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("status %q: %w", update.Status, domain.ErrInvalidInput)
	}
}

// Get fetches a job; private jobs are only visible to their owner.
func (r *JobRepositoryPG) Get(ctx context.Context, jobID, requesterID string) (*domain.GenerationJob, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJobStatus, jobID)
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select job: %w", err)
	}
	if !job.ViewableBy(requesterID) {
		return nil, domain.ErrForbidden
	}
	return job, nil
}

// ListByOwner returns the caller's jobs, optionally filtered by kind/status.
func (r *JobRepositoryPG) ListByOwner(ctx context.Context, userID string, kind domain.JobKind, status domain.JobStatus) ([]domain.GenerationJob, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListJobsByOwner, userID, string(kind), string(status))
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ClaimInFlight stamps up to limit unclaimed (or lease-expired) in-flight
// jobs with the claimant id and returns them, oldest first. SKIP LOCKED keeps
// concurrent claimants from adopting the same rows.
func (r *JobRepositoryPG) ClaimInFlight(ctx context.Context, claimant string, limit int) ([]domain.GenerationJob, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.sql.Query(ctx, sqlinline.QClaimInFlightJobs, claimant, limit)
	if err != nil {
		return nil, fmt.Errorf("claim in-flight jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// RenewClaim refreshes the claimant's lease on one in-flight job, acquiring
// it when unclaimed or expired. ErrNotFound means the lease is held by a live
// competitor or the job left the in-flight states; the caller stops polling.
func (r *JobRepositoryPG) RenewClaim(ctx context.Context, jobID, claimant string) error {
	row := r.sql.QueryRow(ctx, sqlinline.QRenewJobClaim, jobID, claimant)
	var id string
	if err := row.Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("renew job claim: %w", err)
	}
	return nil
}

// UpdateMetadata mutates title/visibility/album of a completed job owned by
// userID. Nil pointers leave the field untouched; an empty album id detaches.
func (r *JobRepositoryPG) UpdateMetadata(ctx context.Context, jobID, userID string, title *string, visibility *domain.Visibility, albumID *string) error {
	var vis *string
	if visibility != nil {
		v := string(*visibility)
		vis = &v
	}
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateJobMetadata, jobID, userID, title, vis, albumID)
	var id string
	if err := row.Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			job, lookupErr := r.Get(ctx, jobID, userID)
			if lookupErr != nil {
				return lookupErr
			}
			if job.UserID != userID {
				return domain.ErrForbidden
			}
			return domain.ErrInvalidTransition
		}
		return fmt.Errorf("update job metadata: %w", err)
	}
	return nil
}

func (r *JobRepositoryPG) currentStatus(ctx context.Context, jobID string) (domain.JobStatus, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectTerminalState, jobID)
	var status string
	if err := row.Scan(&status); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("select job status: %w", err)
	}
	return domain.JobStatus(status), nil
}

func (r *JobRepositoryPG) transitionFailure(ctx context.Context, jobID string, wanted domain.JobStatus) error {
	current, err := r.currentStatus(ctx, jobID)
	if err != nil {
		return err
	}
	if current == wanted {
		// Another caller already applied the same transition; treat as done.
		return nil
	}
	return domain.ErrInvalidTransition
}

func scanJob(row pgx.Row) (*domain.GenerationJob, error) {
	var job domain.GenerationJob
	var kind, status, visibility string
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&kind,
		&status,
		&job.Title,
		&job.InputJSON,
		&job.ExternalJobID,
		&job.ResultURL,
		&job.ImageURL,
		&job.ErrorMessage,
		&visibility,
		&job.AlbumID,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	job.Visibility = domain.Visibility(visibility)
	return &job, nil
}

func collectJobs(rows pgx.Rows) ([]domain.GenerationJob, error) {
	var jobs []domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
