package domain

import "time"

// Album groups completed tracks under one cover.
type Album struct {
	ID         string
	UserID     string
	Title      string
	CoverURL   string
	Visibility Visibility
	TrackCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Playlist is an ordered set of tracks curated by a user.
type Playlist struct {
	ID        string
	UserID    string
	Title     string
	TrackIDs  []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Band is the public artist profile attached to an account.
type Band struct {
	ID        string
	UserID    string
	Name      string
	Bio       string
	PhotoURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShareLink grants read access to a private album through an opaque token.
type ShareLink struct {
	ID        string
	Token     string
	AlbumID   string
	UserID    string
	CreatedAt time.Time
}

// PlayEvent records one playback of a public track.
type PlayEvent struct {
	ID        string
	JobID     string
	Country   string
	CreatedAt time.Time
}

// SiteSetting is a single key/value row of runtime configuration.
type SiteSetting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
