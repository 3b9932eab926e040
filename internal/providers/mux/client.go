// Package mux wraps the MUX video API behind the shared provider contract.
// It serves video-transcode jobs: ingest a source URL, poll the asset until it
// is ready, return the HLS playback URL.
package mux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hifarrer/NuSong-sub002/internal/infra"
	"github.com/hifarrer/NuSong-sub002/internal/providers"
)

// ErrMissingCredentials indicates that the client has no API token pair.
// It wraps ErrUnavailable: nothing ever reaches the provider, so callers
// treat it like an outage, not a rejection.
var ErrMissingCredentials = fmt.Errorf("mux: %w: token id and secret are required", providers.ErrUnavailable)

// Options configures the MUX client.
type Options struct {
	TokenID        string
	TokenSecret    string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the MUX asset API using basic auth.
type Client struct {
	tokenID     string
	tokenSecret string
	baseURL     string
	httpClient  *http.Client
	logger      *infra.Logger
}

type createAssetRequest struct {
	Input       []assetInput `json:"input"`
	PlaybackPolicy []string  `json:"playback_policy"`
}

type assetInput struct {
	URL string `json:"url"`
}

type assetEnvelope struct {
	Data struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		PlaybackIDs []struct {
			ID     string `json:"id"`
			Policy string `json:"policy"`
		} `json:"playback_ids"`
		Errors struct {
			Messages []string `json:"messages"`
		} `json:"errors"`
	} `json:"data"`
	Error struct {
		Messages []string `json:"messages"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults. A client without a token
// pair is refused so the video kind is disabled instead of wired to a client
// that cannot submit.
func NewClient(opts Options) (*Client, error) {
	tokenID := strings.TrimSpace(opts.TokenID)
	tokenSecret := strings.TrimSpace(opts.TokenSecret)
	if tokenID == "" || tokenSecret == "" {
		return nil, ErrMissingCredentials
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.mux.com"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		tokenID:     tokenID,
		tokenSecret: tokenSecret,
		baseURL:     baseURL,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.tokenID != "" && c.tokenSecret != ""
}

// Submit creates a MUX asset from the source URL and returns the asset id.
func (c *Client) Submit(ctx context.Context, in providers.Input) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingCredentials
	}
	source := strings.TrimSpace(in.SourceURL)
	if source == "" {
		return "", fmt.Errorf("mux: %w: source url is required", providers.ErrRejected)
	}
	payload := createAssetRequest{
		Input:          []assetInput{{URL: source}},
		PlaybackPolicy: []string{"public"},
	}
	var out assetEnvelope
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/video/v1/assets", payload, &out); err != nil {
		return "", err
	}
	assetID := strings.TrimSpace(out.Data.ID)
	if assetID == "" {
		return "", fmt.Errorf("mux: %w: missing asset id", providers.ErrUnavailable)
	}
	c.logger.Debug().Str("asset_id", assetID).Msg("mux: asset created")
	return assetID, nil
}

// Status polls one asset and normalizes the MUX state vocabulary.
func (c *Client) Status(ctx context.Context, externalID string) (providers.Status, error) {
	if !c.HasCredentials() {
		return providers.Status{}, ErrMissingCredentials
	}
	var out assetEnvelope
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/video/v1/assets/"+externalID, nil, &out); err != nil {
		return providers.Status{}, err
	}
	switch strings.ToLower(strings.TrimSpace(out.Data.Status)) {
	case "preparing", "waiting":
		return providers.Status{State: providers.StateProcessing}, nil
	case "ready":
		for _, pb := range out.Data.PlaybackIDs {
			if pb.Policy == "public" && pb.ID != "" {
				return providers.Status{
					State:     providers.StateCompleted,
					ResultURL: "https://stream.mux.com/" + pb.ID + ".m3u8",
				}, nil
			}
		}
		return providers.Status{State: providers.StateFailed, Error: "asset ready without playback id"}, nil
	case "errored":
		msg := "video processing failed"
		if len(out.Data.Errors.Messages) > 0 {
			msg = out.Data.Errors.Messages[0]
		}
		return providers.Status{State: providers.StateFailed, Error: msg}, nil
	default:
		return providers.Status{State: providers.StateProcessing}, nil
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("mux: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("mux: build request: %w", err)
	}
	req.SetBasicAuth(c.tokenID, c.tokenSecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mux: %w: %v", providers.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("mux: %w: read response: %v", providers.ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("mux: %w: status %d", providers.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("mux: %w: status 429", providers.ErrQuotaExhausted)
	case resp.StatusCode >= 400:
		return fmt.Errorf("mux: %w: status %d", providers.ErrRejected, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("mux: %w: decode response: %v", providers.ErrUnavailable, err)
	}
	return nil
}

var _ providers.Client = (*Client)(nil)
