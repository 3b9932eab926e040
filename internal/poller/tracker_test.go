package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/providers"
)

type statusStep struct {
	status providers.Status
	err    error
}

type fakeClient struct {
	mu    sync.Mutex
	steps []statusStep
}

func (f *fakeClient) Submit(ctx context.Context, in providers.Input) (string, error) {
	return "ext-1", nil
}

func (f *fakeClient) Status(ctx context.Context, externalID string) (providers.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.steps) == 0 {
		return providers.Status{State: providers.StateProcessing}, nil
	}
	step := f.steps[0]
	if len(f.steps) > 1 {
		f.steps = f.steps[1:]
	}
	return step.status, step.err
}

type recordedWrite struct {
	jobID  string
	update domain.JobUpdate
}

type fakeStore struct {
	mu     sync.Mutex
	writes []recordedWrite
	errs   map[int]error
	done   chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{errs: make(map[int]error), done: make(chan struct{}, 4)}
}

func (f *fakeStore) RecordStatus(ctx context.Context, jobID string, update domain.JobUpdate) error {
	f.mu.Lock()
	idx := len(f.writes)
	f.writes = append(f.writes, recordedWrite{jobID: jobID, update: update})
	err := f.errs[idx]
	f.mu.Unlock()
	if update.Status.Terminal() {
		f.done <- struct{}{}
	}
	return err
}

func (f *fakeStore) recorded() []recordedWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedWrite, len(f.writes))
	copy(out, f.writes)
	return out
}

func testTracker(store Store, client providers.Client, maxTransient int) *Tracker {
	return New(store,
		map[domain.JobKind]providers.Client{domain.JobKindTextToMusic: client},
		Options{Interval: 2 * time.Millisecond, MaxTransient: maxTransient, Logger: zerolog.Nop()},
	)
}

func waitTerminal(t *testing.T, store *fakeStore) {
	t.Helper()
	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never reached a terminal state")
	}
}

func inFlightJob() domain.GenerationJob {
	return domain.GenerationJob{
		ID:            "job-1",
		UserID:        "user-1",
		Kind:          domain.JobKindTextToMusic,
		Status:        domain.JobStatusSubmitted,
		ExternalJobID: "ext-1",
	}
}

func TestTrackerWritesOnlyOnStateChange(t *testing.T) {
	client := &fakeClient{steps: []statusStep{
		{status: providers.Status{State: providers.StateSubmitted}},
		{status: providers.Status{State: providers.StateProcessing}},
		{status: providers.Status{State: providers.StateProcessing}},
		{status: providers.Status{State: providers.StateProcessing}},
		{status: providers.Status{State: providers.StateCompleted, ResultURL: "https://cdn.example.com/track.mp3"}},
	}}
	store := newFakeStore()
	tr := testTracker(store, client, 10)
	defer tr.Shutdown()

	if !tr.Track(inFlightJob()) {
		t.Fatal("Track returned false")
	}
	waitTerminal(t, store)

	writes := store.recorded()
	if len(writes) != 2 {
		t.Fatalf("writes = %d, want 2 (processing once, completed once): %+v", len(writes), writes)
	}
	if writes[0].update.Status != domain.JobStatusProcessing {
		t.Fatalf("first write = %s, want processing", writes[0].update.Status)
	}
	if writes[1].update.Status != domain.JobStatusCompleted {
		t.Fatalf("second write = %s, want completed", writes[1].update.Status)
	}
	if writes[1].update.ResultURL != "https://cdn.example.com/track.mp3" {
		t.Fatalf("result url = %q", writes[1].update.ResultURL)
	}
}

func TestTrackerFailsAfterTransientCeiling(t *testing.T) {
	client := &fakeClient{steps: []statusStep{
		{err: providers.ErrUnavailable},
	}}
	store := newFakeStore()
	tr := testTracker(store, client, 3)
	defer tr.Shutdown()

	tr.Track(inFlightJob())
	waitTerminal(t, store)

	writes := store.recorded()
	if len(writes) != 1 {
		t.Fatalf("writes = %d, want 1: %+v", len(writes), writes)
	}
	if writes[0].update.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", writes[0].update.Status)
	}
	if writes[0].update.ErrorMessage != "status polling timed out" {
		t.Fatalf("error message = %q", writes[0].update.ErrorMessage)
	}
}

func TestTrackerRecoversFromTransientFailures(t *testing.T) {
	client := &fakeClient{steps: []statusStep{
		{err: providers.ErrUnavailable},
		{err: providers.ErrUnavailable},
		{status: providers.Status{State: providers.StateFailed, Error: "render pipeline aborted"}},
	}}
	store := newFakeStore()
	tr := testTracker(store, client, 5)
	defer tr.Shutdown()

	tr.Track(inFlightJob())
	waitTerminal(t, store)

	writes := store.recorded()
	if len(writes) != 1 || writes[0].update.Status != domain.JobStatusFailed {
		t.Fatalf("writes = %+v, want single failed write", writes)
	}
	if writes[0].update.ErrorMessage != "render pipeline aborted" {
		t.Fatalf("error message = %q", writes[0].update.ErrorMessage)
	}
}

func TestTrackerIgnoresDuplicateTerminalWrite(t *testing.T) {
	client := &fakeClient{steps: []statusStep{
		{status: providers.Status{State: providers.StateCompleted, ResultURL: "https://cdn.example.com/a.mp3"}},
	}}
	store := newFakeStore()
	store.errs[0] = domain.ErrInvalidTransition
	tr := testTracker(store, client, 5)
	defer tr.Shutdown()

	tr.Track(inFlightJob())
	waitTerminal(t, store)
	tr.Shutdown()

	if tr.Tracking("job-1") {
		t.Fatal("job still tracked after terminal write")
	}
}

func TestTrackerDuplicateTrackIsNoop(t *testing.T) {
	client := &fakeClient{}
	store := newFakeStore()
	tr := testTracker(store, client, 5)
	defer tr.Shutdown()

	job := inFlightJob()
	if !tr.Track(job) {
		t.Fatal("first Track returned false")
	}
	if tr.Track(job) {
		t.Fatal("second Track for same job returned true")
	}
}

func TestTrackerRejectsTerminalAndUnknownJobs(t *testing.T) {
	store := newFakeStore()
	tr := testTracker(store, &fakeClient{}, 5)
	defer tr.Shutdown()

	done := inFlightJob()
	done.Status = domain.JobStatusCompleted
	if tr.Track(done) {
		t.Fatal("tracked a completed job")
	}

	noExt := inFlightJob()
	noExt.ExternalJobID = ""
	if tr.Track(noExt) {
		t.Fatal("tracked a job without an external id")
	}

	wrongKind := inFlightJob()
	wrongKind.Kind = domain.JobKindVideoTranscode
	if tr.Track(wrongKind) {
		t.Fatal("tracked a kind with no client")
	}
}

type leasingStore struct {
	*fakeStore
	renewErr error
}

func (f *leasingStore) RenewClaim(ctx context.Context, jobID, claimant string) error {
	return f.renewErr
}

func TestTrackerStopsWhenLeaseLost(t *testing.T) {
	client := &fakeClient{steps: []statusStep{
		{status: providers.Status{State: providers.StateCompleted, ResultURL: "https://cdn.example.com/a.mp3"}},
	}}
	store := &leasingStore{fakeStore: newFakeStore(), renewErr: domain.ErrNotFound}
	tr := New(store,
		map[domain.JobKind]providers.Client{domain.JobKindTextToMusic: client},
		Options{Interval: 2 * time.Millisecond, MaxTransient: 5, Claimant: "api-1", Logger: zerolog.Nop()},
	)
	defer tr.Shutdown()

	tr.Track(inFlightJob())

	deadline := time.Now().Add(time.Second)
	for tr.Tracking("job-1") {
		if time.Now().After(deadline) {
			t.Fatal("loop did not stop after losing its lease")
		}
		time.Sleep(time.Millisecond)
	}

	// Another claimant owns the job now; this loop must not write anything.
	if writes := store.recorded(); len(writes) != 0 {
		t.Fatalf("writes = %+v, want none after a lost lease", writes)
	}
}

func TestTrackerRenewsLeaseEachTick(t *testing.T) {
	client := &fakeClient{steps: []statusStep{
		{status: providers.Status{State: providers.StateCompleted, ResultURL: "https://cdn.example.com/a.mp3"}},
	}}
	store := &leasingStore{fakeStore: newFakeStore()}
	tr := New(store,
		map[domain.JobKind]providers.Client{domain.JobKindTextToMusic: client},
		Options{Interval: 2 * time.Millisecond, MaxTransient: 5, Claimant: "api-1", Logger: zerolog.Nop()},
	)
	defer tr.Shutdown()

	tr.Track(inFlightJob())
	waitTerminal(t, store.fakeStore)

	writes := store.recorded()
	if len(writes) != 1 || writes[0].update.Status != domain.JobStatusCompleted {
		t.Fatalf("writes = %+v, want single completed write", writes)
	}
}

func TestTrackerUntrackStopsLoop(t *testing.T) {
	client := &fakeClient{}
	store := newFakeStore()
	tr := testTracker(store, client, 5)
	defer tr.Shutdown()

	tr.Track(inFlightJob())
	tr.Untrack("job-1")

	deadline := time.Now().Add(time.Second)
	for tr.Tracking("job-1") {
		if time.Now().After(deadline) {
			t.Fatal("loop did not stop after Untrack")
		}
		time.Sleep(time.Millisecond)
	}
}
