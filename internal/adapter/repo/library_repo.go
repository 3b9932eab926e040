package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/infra"
	"github.com/hifarrer/NuSong-sub002/internal/sqlinline"
)

// AlbumRepositoryPG implements domain.AlbumRepository.
type AlbumRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewAlbumRepository(sql infra.SQLExecutor) *AlbumRepositoryPG {
	return &AlbumRepositoryPG{sql: sql}
}

func (r *AlbumRepositoryPG) Create(ctx context.Context, album *domain.Album) error {
	if album.ID == "" {
		album.ID = uuid.NewString()
	}
	if album.Visibility == "" {
		album.Visibility = domain.VisibilityPrivate
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertAlbum, album.ID, album.UserID, album.Title, album.CoverURL, string(album.Visibility))
	if err != nil {
		return fmt.Errorf("insert album: %w", err)
	}
	return nil
}

// Get fetches an album; private albums are only visible to their owner.
func (r *AlbumRepositoryPG) Get(ctx context.Context, albumID, requesterID string) (*domain.Album, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectAlbum, albumID)
	var album domain.Album
	var visibility string
	if err := row.Scan(&album.ID, &album.UserID, &album.Title, &album.CoverURL, &visibility, &album.TrackCount, &album.CreatedAt, &album.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select album: %w", err)
	}
	album.Visibility = domain.Visibility(visibility)
	if album.Visibility == domain.VisibilityPrivate && album.UserID != requesterID {
		return nil, domain.ErrForbidden
	}
	return &album, nil
}

func (r *AlbumRepositoryPG) ListByOwner(ctx context.Context, userID string) ([]domain.Album, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListAlbumsByOwner, userID)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer rows.Close()
	var albums []domain.Album
	for rows.Next() {
		var album domain.Album
		var visibility string
		if err := rows.Scan(&album.ID, &album.UserID, &album.Title, &album.CoverURL, &visibility, &album.TrackCount, &album.CreatedAt, &album.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		album.Visibility = domain.Visibility(visibility)
		albums = append(albums, album)
	}
	return albums, rows.Err()
}

// ListTracks returns the album's completed tracks. Access control is the
// caller's job via Get.
func (r *AlbumRepositoryPG) ListTracks(ctx context.Context, albumID string) ([]domain.GenerationJob, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListAlbumTracks, albumID)
	if err != nil {
		return nil, fmt.Errorf("list album tracks: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// PlaylistRepositoryPG implements domain.PlaylistRepository.
type PlaylistRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewPlaylistRepository(sql infra.SQLExecutor) *PlaylistRepositoryPG {
	return &PlaylistRepositoryPG{sql: sql}
}

func (r *PlaylistRepositoryPG) Create(ctx context.Context, playlist *domain.Playlist) error {
	if playlist.ID == "" {
		playlist.ID = uuid.NewString()
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertPlaylist, playlist.ID, playlist.UserID, playlist.Title)
	if err != nil {
		return fmt.Errorf("insert playlist: %w", err)
	}
	return nil
}

func (r *PlaylistRepositoryPG) Get(ctx context.Context, playlistID, requesterID string) (*domain.Playlist, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectPlaylist, playlistID)
	var playlist domain.Playlist
	if err := row.Scan(&playlist.ID, &playlist.UserID, &playlist.Title, &playlist.CreatedAt, &playlist.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select playlist: %w", err)
	}
	if playlist.UserID != requesterID {
		return nil, domain.ErrForbidden
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectPlaylistTrackIDs, playlistID)
	if err != nil {
		return nil, fmt.Errorf("select playlist tracks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan playlist track: %w", err)
		}
		playlist.TrackIDs = append(playlist.TrackIDs, id)
	}
	return &playlist, rows.Err()
}

func (r *PlaylistRepositoryPG) ListByOwner(ctx context.Context, userID string) ([]domain.Playlist, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListPlaylistsByOwner, userID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()
	var playlists []domain.Playlist
	for rows.Next() {
		var p domain.Playlist
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// AddTrack attaches a completed track the caller may see: their own job, or a
// public one. The insert's guard refuses anything else.
func (r *PlaylistRepositoryPG) AddTrack(ctx context.Context, playlistID, userID, jobID string) error {
	if _, err := r.Get(ctx, playlistID, userID); err != nil {
		return err
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QInsertPlaylistTrack, playlistID, jobID, userID)
	if err != nil {
		return fmt.Errorf("add playlist track: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Guard miss or duplicate; only the former is an error.
		row := r.sql.QueryRow(ctx, sqlinline.QSelectAttachableJob, jobID, userID)
		var one int
		if err := row.Scan(&one); err != nil {
			if infra.IsNoRows(err) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("check attachable job: %w", err)
		}
	}
	return nil
}

func (r *PlaylistRepositoryPG) RemoveTrack(ctx context.Context, playlistID, userID, jobID string) error {
	if _, err := r.Get(ctx, playlistID, userID); err != nil {
		return err
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QDeletePlaylistTrack, playlistID, jobID); err != nil {
		return fmt.Errorf("remove playlist track: %w", err)
	}
	return nil
}

// BandRepositoryPG implements domain.BandRepository.
type BandRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewBandRepository(sql infra.SQLExecutor) *BandRepositoryPG {
	return &BandRepositoryPG{sql: sql}
}

func (r *BandRepositoryPG) Upsert(ctx context.Context, band *domain.Band) error {
	if band.ID == "" {
		band.ID = uuid.NewString()
	}
	row := r.sql.QueryRow(ctx, sqlinline.QUpsertBand, band.ID, band.UserID, band.Name, band.Bio, band.PhotoURL)
	if err := row.Scan(&band.ID, &band.UserID, &band.Name, &band.Bio, &band.PhotoURL, &band.CreatedAt, &band.UpdatedAt); err != nil {
		return fmt.Errorf("upsert band: %w", err)
	}
	return nil
}

func (r *BandRepositoryPG) GetByUser(ctx context.Context, userID string) (*domain.Band, error) {
	return r.selectBand(ctx, sqlinline.QSelectBandByUser, userID)
}

func (r *BandRepositoryPG) GetByID(ctx context.Context, bandID string) (*domain.Band, error) {
	return r.selectBand(ctx, sqlinline.QSelectBandByID, bandID)
}

func (r *BandRepositoryPG) selectBand(ctx context.Context, query, arg string) (*domain.Band, error) {
	row := r.sql.QueryRow(ctx, query, arg)
	var band domain.Band
	if err := row.Scan(&band.ID, &band.UserID, &band.Name, &band.Bio, &band.PhotoURL, &band.CreatedAt, &band.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select band: %w", err)
	}
	return &band, nil
}

// ShareLinkRepositoryPG implements domain.ShareLinkRepository.
type ShareLinkRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewShareLinkRepository(sql infra.SQLExecutor) *ShareLinkRepositoryPG {
	return &ShareLinkRepositoryPG{sql: sql}
}

// Create stores a share link; the insert is a no-op when the album is not
// owned by the requesting user.
func (r *ShareLinkRepositoryPG) Create(ctx context.Context, link *domain.ShareLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QInsertShareLink, link.ID, link.Token, link.AlbumID, link.UserID)
	if err != nil {
		return fmt.Errorf("insert share link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrForbidden
	}
	return nil
}

func (r *ShareLinkRepositoryPG) GetByToken(ctx context.Context, token string) (*domain.ShareLink, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectShareLinkByToken, token)
	var link domain.ShareLink
	if err := row.Scan(&link.ID, &link.Token, &link.AlbumID, &link.UserID, &link.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select share link: %w", err)
	}
	return &link, nil
}

func (r *ShareLinkRepositoryPG) DeleteByAlbum(ctx context.Context, albumID, userID string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QDeleteShareLinksByAlbum, albumID, userID); err != nil {
		return fmt.Errorf("delete share links: %w", err)
	}
	return nil
}

// SettingsRepositoryPG implements domain.SettingsRepository.
type SettingsRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewSettingsRepository(sql infra.SQLExecutor) *SettingsRepositoryPG {
	return &SettingsRepositoryPG{sql: sql}
}

func (r *SettingsRepositoryPG) Get(ctx context.Context, key string) (string, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectSetting, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("select setting: %w", err)
	}
	return value, nil
}

var (
	_ domain.AlbumRepository     = (*AlbumRepositoryPG)(nil)
	_ domain.PlaylistRepository  = (*PlaylistRepositoryPG)(nil)
	_ domain.BandRepository      = (*BandRepositoryPG)(nil)
	_ domain.ShareLinkRepository = (*ShareLinkRepositoryPG)(nil)
	_ domain.SettingsRepository  = (*SettingsRepositoryPG)(nil)
)
