package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hifarrer/NuSong-sub002/internal/infra/sqltest"
	"github.com/hifarrer/NuSong-sub002/internal/sqlinline"
)

func TestGalleryListsPublicTracks(t *testing.T) {
	now := time.Now()
	sql := sqltest.NewExecutor().On(sqlinline.QListPublicTracks, sqltest.Result{Rows: [][]any{
		{"job-1", "user-1", "Neon Nights", "https://cdn.example.com/a.mp3", "https://cdn.example.com/a.png", "The Synths", int64(42), now},
		{"job-2", "user-2", "Quiet Rain", "https://cdn.example.com/b.mp3", "", "", int64(7), now},
	}})
	app := newTestApp(t, sql, newFakeJobRepo(), nil)

	rec := httptest.NewRecorder()
	app.Gallery(rec, httptest.NewRequest(http.MethodGet, "/v1/gallery", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Items  []galleryTrackDTO `json:"items"`
		Cached bool              `json:"cached"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(body.Items))
	}
	if body.Items[0].BandName != "The Synths" || body.Items[0].Plays != 42 {
		t.Fatalf("first item = %+v", body.Items[0])
	}
	if body.Cached {
		t.Fatal("cache disabled but response marked cached")
	}
}

func TestTrackPlayRecordsEvent(t *testing.T) {
	sql := sqltest.NewExecutor().On(sqlinline.QInsertPlayEvent, sqltest.Result{Tag: pgconn.NewCommandTag("INSERT 0 1")})
	app := newTestApp(t, sql, newFakeJobRepo(), nil)

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/v1/tracks/job-1/plays", nil), "job_id", "job-1")
	rec := httptest.NewRecorder()
	app.TrackPlay(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if sql.CallCount(sqlinline.QInsertPlayEvent) != 1 {
		t.Fatal("play event not recorded")
	}
}

func TestTrackPlayIgnoresUnknownTrack(t *testing.T) {
	// The insert is guarded by an EXISTS on completed jobs; zero rows means
	// the play is silently dropped.
	sql := sqltest.NewExecutor().On(sqlinline.QInsertPlayEvent, sqltest.Result{Tag: pgconn.NewCommandTag("INSERT 0 0")})
	app := newTestApp(t, sql, newFakeJobRepo(), nil)

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/v1/tracks/nope/plays", nil), "job_id", "nope")
	rec := httptest.NewRecorder()
	app.TrackPlay(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
}
