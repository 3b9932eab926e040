package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/infra/sqltest"
	"github.com/hifarrer/NuSong-sub002/internal/sqlinline"
)

func ownedPlaylist(sql *sqltest.Executor) *sqltest.Executor {
	now := time.Now()
	return sql.
		OnRow(sqlinline.QSelectPlaylist, "pl-1", "user-1", "Late Mixes", now, now).
		OnEmpty(sqlinline.QSelectPlaylistTrackIDs)
}

func TestAddTrackPassesCallerToGuard(t *testing.T) {
	sql := ownedPlaylist(sqltest.NewExecutor()).
		On(sqlinline.QInsertPlaylistTrack, sqltest.Result{Tag: pgconn.NewCommandTag("INSERT 0 1")})
	playlists := NewPlaylistRepository(sql)

	if err := playlists.AddTrack(context.Background(), "pl-1", "user-1", "job-1"); err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	calls := sql.Calls()
	insert := calls[len(calls)-1]
	if insert.Query != sqlinline.QInsertPlaylistTrack {
		t.Fatalf("last query = %.30q, want insert", insert.Query)
	}
	if len(insert.Args) != 3 || insert.Args[2] != "user-1" {
		t.Fatalf("insert args = %v, want caller id as guard arg", insert.Args)
	}
}

func TestAddTrackRefusesForeignPrivateJob(t *testing.T) {
	// Insert guard misses and the attachability check confirms the caller may
	// not see the job.
	sql := ownedPlaylist(sqltest.NewExecutor()).
		OnEmpty(sqlinline.QInsertPlaylistTrack).
		OnEmpty(sqlinline.QSelectAttachableJob)
	playlists := NewPlaylistRepository(sql)

	err := playlists.AddTrack(context.Background(), "pl-1", "user-1", "job-private")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAddTrackDuplicateIsNoop(t *testing.T) {
	sql := ownedPlaylist(sqltest.NewExecutor()).
		On(sqlinline.QInsertPlaylistTrack, sqltest.Result{Tag: pgconn.NewCommandTag("INSERT 0 0")}).
		OnRow(sqlinline.QSelectAttachableJob, 1)
	playlists := NewPlaylistRepository(sql)

	if err := playlists.AddTrack(context.Background(), "pl-1", "user-1", "job-1"); err != nil {
		t.Fatalf("duplicate AddTrack: %v", err)
	}
}

func TestAddTrackRequiresPlaylistOwnership(t *testing.T) {
	now := time.Now()
	sql := sqltest.NewExecutor().
		OnRow(sqlinline.QSelectPlaylist, "pl-1", "user-1", "Late Mixes", now, now)
	playlists := NewPlaylistRepository(sql)

	err := playlists.AddTrack(context.Background(), "pl-1", "user-2", "job-1")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if sql.CallCount(sqlinline.QInsertPlaylistTrack) != 0 {
		t.Fatal("insert ran for a playlist the caller does not own")
	}
}
