package domain

import "time"

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindTextToMusic    JobKind = "text_to_music"
	JobKindAudioToMusic   JobKind = "audio_to_music"
	JobKindImage          JobKind = "image"
	JobKindVideoTranscode JobKind = "video_transcode"
)

// Valid reports whether k is a known job kind.
func (k JobKind) Valid() bool {
	switch k {
	case JobKindTextToMusic, JobKindAudioToMusic, JobKindImage, JobKindVideoTranscode:
		return true
	}
	return false
}

// JobStatus enumerates generation job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusSubmitted  JobStatus = "submitted"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further status transitions are permitted.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether moving from s to next is a legal forward
// transition. Statuses only move forward; failed is reachable from every
// non-completed state; terminal states are write-once.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case JobStatusSubmitted:
		return s == JobStatusPending
	case JobStatusProcessing:
		return s == JobStatusSubmitted || s == JobStatusProcessing
	case JobStatusCompleted:
		return s == JobStatusSubmitted || s == JobStatusProcessing
	case JobStatusFailed:
		return true
	}
	return false
}

// Visibility controls who may read a job or library entity.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// GenerationJob tracks one externally-owned generation request from submission
// to its terminal state.
type GenerationJob struct {
	ID            string
	UserID        string
	Kind          JobKind
	Status        JobStatus
	Title         string
	InputJSON     []byte
	ExternalJobID string
	ResultURL     string
	ImageURL      string
	ErrorMessage  string
	Visibility    Visibility
	AlbumID       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ViewableBy reports whether the requester may read this job.
func (j *GenerationJob) ViewableBy(requesterID string) bool {
	if j.Visibility == VisibilityPublic {
		return true
	}
	return requesterID != "" && requesterID == j.UserID
}

// CheckInvariants verifies the result/error exclusivity rules: a result is
// present iff the job completed, an error is present iff the job failed.
func (j *GenerationJob) CheckInvariants() error {
	if (j.ResultURL != "") != (j.Status == JobStatusCompleted) {
		return ErrInvalidTransition
	}
	if (j.ErrorMessage != "") != (j.Status == JobStatusFailed) {
		return ErrInvalidTransition
	}
	return nil
}
