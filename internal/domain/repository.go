package domain

import "context"

// JobUpdate carries one observed provider state for RecordStatus.
type JobUpdate struct {
	Status       JobStatus
	ResultURL    string
	ImageURL     string
	ErrorMessage string
}

// JobRepository persists generation jobs and enforces transition guards.
// ClaimInFlight and RenewClaim implement a lease: a poll loop holds a job by
// renewing its claim, and only jobs with an expired or absent claim can be
// adopted by another process.
type JobRepository interface {
	Create(ctx context.Context, job *GenerationJob) error
	RecordSubmitted(ctx context.Context, jobID, externalJobID string) error
	RecordStatus(ctx context.Context, jobID string, update JobUpdate) error
	Get(ctx context.Context, jobID, requesterID string) (*GenerationJob, error)
	ListByOwner(ctx context.Context, userID string, kind JobKind, status JobStatus) ([]GenerationJob, error)
	ClaimInFlight(ctx context.Context, claimant string, limit int) ([]GenerationJob, error)
	RenewClaim(ctx context.Context, jobID, claimant string) error
	UpdateMetadata(ctx context.Context, jobID, userID string, title *string, visibility *Visibility, albumID *string) error
}

// UserRepository defines access methods for users.
type UserRepository interface {
	UpsertByGoogleSub(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByBillingCustomer(ctx context.Context, customer string) (*User, error)
}

// PlanRepository reads subscription plans.
type PlanRepository interface {
	List(ctx context.Context) ([]Plan, error)
	GetByID(ctx context.Context, id string) (*Plan, error)
}

// AlbumRepository persists albums.
type AlbumRepository interface {
	Create(ctx context.Context, album *Album) error
	Get(ctx context.Context, albumID, requesterID string) (*Album, error)
	ListByOwner(ctx context.Context, userID string) ([]Album, error)
	ListTracks(ctx context.Context, albumID string) ([]GenerationJob, error)
}

// PlaylistRepository persists playlists.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist *Playlist) error
	Get(ctx context.Context, playlistID, requesterID string) (*Playlist, error)
	ListByOwner(ctx context.Context, userID string) ([]Playlist, error)
	AddTrack(ctx context.Context, playlistID, userID, jobID string) error
	RemoveTrack(ctx context.Context, playlistID, userID, jobID string) error
}

// BandRepository persists band profiles.
type BandRepository interface {
	Upsert(ctx context.Context, band *Band) error
	GetByUser(ctx context.Context, userID string) (*Band, error)
	GetByID(ctx context.Context, bandID string) (*Band, error)
}

// ShareLinkRepository manages shareable album links.
type ShareLinkRepository interface {
	Create(ctx context.Context, link *ShareLink) error
	GetByToken(ctx context.Context, token string) (*ShareLink, error)
	DeleteByAlbum(ctx context.Context, albumID, userID string) error
}

// SettingsRepository reads site settings.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
}
