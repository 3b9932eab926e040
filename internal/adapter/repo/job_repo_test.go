package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/infra/sqltest"
	"github.com/hifarrer/NuSong-sub002/internal/sqlinline"
)

func jobRow(id, userID, kind, status, resultURL, errMsg, visibility string) []any {
	now := time.Now()
	return []any{
		id, userID, kind, status, "Test Track", []byte("{}"), "ext-1",
		resultURL, "", errMsg, visibility, "", now, now,
	}
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	sql := sqltest.NewExecutor().On(sqlinline.QInsertJob, sqltest.Result{})
	jobs := NewJobRepository(sql)

	job := &domain.GenerationJob{UserID: "user-1", Kind: domain.JobKindTextToMusic}
	if err := jobs.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.ID == "" {
		t.Fatal("Create did not assign an id")
	}
	if job.Status != domain.JobStatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	if job.Visibility != domain.VisibilityPrivate {
		t.Fatalf("visibility = %s, want private", job.Visibility)
	}

	bad := &domain.GenerationJob{UserID: "user-1", Kind: "podcast"}
	if err := jobs.Create(context.Background(), bad); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown kind err = %v, want ErrInvalidInput", err)
	}
}

func TestRecordSubmittedRejectsNonPending(t *testing.T) {
	// Guarded UPDATE matches nothing; the job turns out to be already submitted.
	sql := sqltest.NewExecutor().
		OnEmpty(sqlinline.QRecordJobSubmitted).
		OnRow(sqlinline.QSelectTerminalState, "submitted")
	jobs := NewJobRepository(sql)

	err := jobs.RecordSubmitted(context.Background(), "job-1", "ext-2")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestRecordSubmittedUnknownJob(t *testing.T) {
	sql := sqltest.NewExecutor().
		OnEmpty(sqlinline.QRecordJobSubmitted).
		OnEmpty(sqlinline.QSelectTerminalState)
	jobs := NewJobRepository(sql)

	err := jobs.RecordSubmitted(context.Background(), "missing", "ext-1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordStatusProcessingIsIdempotent(t *testing.T) {
	sql := sqltest.NewExecutor().
		OnEmpty(sqlinline.QRecordJobProcessing).
		OnRow(sqlinline.QSelectTerminalState, "processing")
	jobs := NewJobRepository(sql)

	// Already processing: repeated observation is a no-op, not an error.
	if err := jobs.RecordStatus(context.Background(), "job-1", domain.JobUpdate{Status: domain.JobStatusProcessing}); err != nil {
		t.Fatalf("repeat processing err = %v, want nil", err)
	}
}

func TestRecordStatusTerminalIsWriteOnce(t *testing.T) {
	// Completed twice: the second write hits the guard but finds the same
	// terminal state, so it is benign.
	sql := sqltest.NewExecutor().
		OnEmpty(sqlinline.QRecordJobCompleted).
		OnRow(sqlinline.QSelectTerminalState, "completed")
	jobs := NewJobRepository(sql)

	err := jobs.RecordStatus(context.Background(), "job-1", domain.JobUpdate{
		Status:    domain.JobStatusCompleted,
		ResultURL: "https://cdn.example.com/track.mp3",
	})
	if err != nil {
		t.Fatalf("duplicate completed err = %v, want nil", err)
	}

	// Failing a completed job is a real violation.
	sql = sqltest.NewExecutor().
		OnEmpty(sqlinline.QRecordJobFailed).
		OnRow(sqlinline.QSelectTerminalState, "completed")
	jobs = NewJobRepository(sql)

	err = jobs.RecordStatus(context.Background(), "job-1", domain.JobUpdate{
		Status:       domain.JobStatusFailed,
		ErrorMessage: "late failure",
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("fail-after-complete err = %v, want ErrInvalidTransition", err)
	}
}

func TestRecordStatusCompletedRequiresResult(t *testing.T) {
	sql := sqltest.NewExecutor()
	jobs := NewJobRepository(sql)

	err := jobs.RecordStatus(context.Background(), "job-1", domain.JobUpdate{Status: domain.JobStatusCompleted})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if len(sql.Calls()) != 0 {
		t.Fatal("completed without result reached the database")
	}
}

func TestGetVisibility(t *testing.T) {
	ctx := context.Background()

	sql := sqltest.NewExecutor().
		On(sqlinline.QSelectJobStatus, sqltest.Result{Rows: [][]any{
			jobRow("job-1", "owner-1", "text_to_music", "completed", "https://cdn.example.com/a.mp3", "", "private"),
		}})
	jobs := NewJobRepository(sql)

	if _, err := jobs.Get(ctx, "job-1", "someone-else"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("private job for stranger err = %v, want ErrForbidden", err)
	}

	sql = sqltest.NewExecutor().
		On(sqlinline.QSelectJobStatus, sqltest.Result{Rows: [][]any{
			jobRow("job-1", "owner-1", "text_to_music", "completed", "https://cdn.example.com/a.mp3", "", "public"),
		}})
	jobs = NewJobRepository(sql)

	job, err := jobs.Get(ctx, "job-1", "someone-else")
	if err != nil {
		t.Fatalf("public job err = %v", err)
	}
	if err := job.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}

	sql = sqltest.NewExecutor().OnEmpty(sqlinline.QSelectJobStatus)
	jobs = NewJobRepository(sql)
	if _, err := jobs.Get(ctx, "missing", "owner-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing job err = %v, want ErrNotFound", err)
	}
}

func TestUpdateMetadataGuards(t *testing.T) {
	ctx := context.Background()
	title := "Renamed"

	// In-flight jobs cannot be edited: guarded update misses, job exists and
	// is owned, so the state is the problem.
	sql := sqltest.NewExecutor().
		OnEmpty(sqlinline.QUpdateJobMetadata).
		On(sqlinline.QSelectJobStatus, sqltest.Result{Rows: [][]any{
			jobRow("job-1", "owner-1", "text_to_music", "processing", "", "", "private"),
		}})
	jobs := NewJobRepository(sql)

	err := jobs.UpdateMetadata(ctx, "job-1", "owner-1", &title, nil, nil)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	sql = sqltest.NewExecutor().
		OnEmpty(sqlinline.QUpdateJobMetadata).
		OnEmpty(sqlinline.QSelectJobStatus)
	jobs = NewJobRepository(sql)
	if err := jobs.UpdateMetadata(ctx, "missing", "owner-1", &title, nil, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing job err = %v, want ErrNotFound", err)
	}
}

func TestClaimInFlightStampsClaimant(t *testing.T) {
	sql := sqltest.NewExecutor().On(sqlinline.QClaimInFlightJobs, sqltest.Result{Rows: [][]any{
		jobRow("job-1", "owner-1", "text_to_music", "submitted", "", "", "private"),
	}})
	jobs := NewJobRepository(sql)

	got, err := jobs.ClaimInFlight(context.Background(), "worker-a", 0)
	if err != nil {
		t.Fatalf("ClaimInFlight: %v", err)
	}
	if len(got) != 1 || got[0].ID != "job-1" {
		t.Fatalf("jobs = %+v", got)
	}
	calls := sql.Calls()
	if calls[0].Args[0] != "worker-a" {
		t.Fatalf("claimant arg = %v, want worker-a", calls[0].Args[0])
	}
	if calls[0].Args[1] != 100 {
		t.Fatalf("limit arg = %v, want 100", calls[0].Args[1])
	}
}

func TestRenewClaim(t *testing.T) {
	ctx := context.Background()

	sql := sqltest.NewExecutor().On(sqlinline.QRenewJobClaim, sqltest.Result{Rows: [][]any{
		{"job-1"},
	}})
	jobs := NewJobRepository(sql)
	if err := jobs.RenewClaim(ctx, "job-1", "worker-a"); err != nil {
		t.Fatalf("RenewClaim: %v", err)
	}

	// Zero rows means another claimant holds a live lease.
	sql = sqltest.NewExecutor().OnEmpty(sqlinline.QRenewJobClaim)
	jobs = NewJobRepository(sql)
	if err := jobs.RenewClaim(ctx, "job-1", "worker-b"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("contested lease err = %v, want ErrNotFound", err)
	}
}
