package domain

import "testing"

func TestJobStatusCanTransition(t *testing.T) {
	cases := []struct {
		from JobStatus
		to   JobStatus
		want bool
	}{
		{JobStatusPending, JobStatusSubmitted, true},
		{JobStatusPending, JobStatusProcessing, false},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusPending, JobStatusFailed, true},
		{JobStatusSubmitted, JobStatusProcessing, true},
		{JobStatusSubmitted, JobStatusCompleted, true},
		{JobStatusSubmitted, JobStatusFailed, true},
		{JobStatusSubmitted, JobStatusSubmitted, false},
		{JobStatusProcessing, JobStatusProcessing, true},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusProcessing, JobStatusFailed, true},
		{JobStatusProcessing, JobStatusSubmitted, false},
		{JobStatusCompleted, JobStatusFailed, false},
		{JobStatusCompleted, JobStatusProcessing, false},
		{JobStatusFailed, JobStatusCompleted, false},
		{JobStatusFailed, JobStatusFailed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestJobStatusTerminal(t *testing.T) {
	for _, s := range []JobStatus{JobStatusPending, JobStatusSubmitted, JobStatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobStatusCompleted, JobStatusFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

// Walk every legal transition sequence from pending and assert the
// result/error exclusivity invariant after each applied step.
func TestJobInvariantAcrossTransitionSequences(t *testing.T) {
	var walk func(job GenerationJob)
	walk = func(job GenerationJob) {
		if err := job.CheckInvariants(); err != nil {
			t.Fatalf("invariant violated at status %s: %v", job.Status, err)
		}
		if job.Status.Terminal() {
			return
		}
		for _, next := range []JobStatus{JobStatusSubmitted, JobStatusProcessing, JobStatusCompleted, JobStatusFailed} {
			if !job.Status.CanTransition(next) {
				continue
			}
			if next == job.Status {
				continue // self-loop on processing, already covered
			}
			n := job
			n.Status = next
			switch next {
			case JobStatusCompleted:
				n.ResultURL = "https://cdn.example.com/track.mp3"
			case JobStatusFailed:
				n.ErrorMessage = "provider reported failure"
			}
			walk(n)
		}
	}
	walk(GenerationJob{ID: "job-1", UserID: "user-1", Kind: JobKindTextToMusic, Status: JobStatusPending})
}

func TestJobViewableBy(t *testing.T) {
	private := &GenerationJob{UserID: "owner", Visibility: VisibilityPrivate}
	if !private.ViewableBy("owner") {
		t.Errorf("owner should view private job")
	}
	if private.ViewableBy("other") {
		t.Errorf("non-owner should not view private job")
	}
	if private.ViewableBy("") {
		t.Errorf("anonymous should not view private job")
	}
	public := &GenerationJob{UserID: "owner", Visibility: VisibilityPublic}
	if !public.ViewableBy("other") || !public.ViewableBy("") {
		t.Errorf("anyone should view public job")
	}
}

func TestJobKindValid(t *testing.T) {
	for _, k := range []JobKind{JobKindTextToMusic, JobKindAudioToMusic, JobKindImage, JobKindVideoTranscode} {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if JobKind("podcast").Valid() {
		t.Errorf("unknown kind should be invalid")
	}
}
