package mux

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hifarrer/NuSong-sub002/internal/providers"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{TokenID: "id", TokenSecret: "secret", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return client
}

func TestNewClientRequiresTokenPair(t *testing.T) {
	for _, opts := range []Options{{}, {TokenID: "id"}, {TokenSecret: "secret"}} {
		if _, err := NewClient(opts); !errors.Is(err, ErrMissingCredentials) {
			t.Fatalf("NewClient(%+v) error = %v, want ErrMissingCredentials", opts, err)
		}
	}
	if !errors.Is(ErrMissingCredentials, providers.ErrUnavailable) {
		t.Fatal("missing credentials must read as unavailable, not a rejection")
	}
}

func TestSubmitCreatesAsset(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			t.Errorf("basic auth = %q/%q", user, pass)
		}
		if r.URL.Path != "/video/v1/assets" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "asset-1", "status": "preparing"},
		})
	})
	id, err := client.Submit(context.Background(), providers.Input{SourceURL: "https://cdn.example.com/in.mp4"})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if id != "asset-1" {
		t.Fatalf("Submit() = %q", id)
	}
}

func TestSubmitRequiresSourceURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	if _, err := client.Submit(context.Background(), providers.Input{}); !errors.Is(err, providers.ErrRejected) {
		t.Fatalf("Submit() error = %v, want ErrRejected", err)
	}
}

func TestStatusReadyReturnsPlaybackURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":     "asset-1",
				"status": "ready",
				"playback_ids": []map[string]any{
					{"id": "pb-1", "policy": "public"},
				},
			},
		})
	})
	status, err := client.Status(context.Background(), "asset-1")
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if status.State != providers.StateCompleted {
		t.Fatalf("state = %s", status.State)
	}
	if status.ResultURL != "https://stream.mux.com/pb-1.m3u8" {
		t.Fatalf("result url = %q", status.ResultURL)
	}
}

func TestStatusErrored(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":     "asset-1",
				"status": "errored",
				"errors": map[string]any{"messages": []string{"input file unreadable"}},
			},
		})
	})
	status, err := client.Status(context.Background(), "asset-1")
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if status.State != providers.StateFailed || status.Error != "input file unreadable" {
		t.Fatalf("status = %+v", status)
	}
}

func TestStatusPreparing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "asset-1", "status": "preparing"},
		})
	})
	status, err := client.Status(context.Background(), "asset-1")
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if status.State != providers.StateProcessing {
		t.Fatalf("state = %s", status.State)
	}
}
