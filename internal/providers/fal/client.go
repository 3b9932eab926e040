// Package fal wraps the FAL.ai queue API behind the shared provider contract.
// It serves image generation (cover art and band photos).
package fal

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

// ErrMissingAPIKey indicates that the client was configured without
// credentials. It wraps ErrUnavailable: nothing ever reaches the provider,
// so callers treat it like an outage, not a rejection.
var ErrMissingAPIKey = fmt.Errorf("fal: %w: api key is required", providers.ErrUnavailable)

// Options configures the FAL queue client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the FAL queue API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type submitRequest struct {
	Prompt    string `json:"prompt"`
	ImageSize string `json:"image_size,omitempty"`
	NumImages int    `json:"num_images,omitempty"`
}

type submitResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// NewClient constructs a client with sane defaults. A client without an API
// key is refused so the image kind is disabled instead of wired to a client
// that cannot submit.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://queue.fal.run"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "fal-ai/flux/schnell"
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
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Submit enqueues an image generation request and returns the queue request id.
func (c *Client) Submit(ctx context.Context, in providers.Input) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("fal: %w: prompt is required", providers.ErrRejected)
	}
	payload := submitRequest{Prompt: prompt, ImageSize: "square_hd", NumImages: 1}
	var out submitResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/"+c.model, payload, &out); err != nil {
		return "", err
	}
	requestID := strings.TrimSpace(out.RequestID)
	if requestID == "" {
		return "", fmt.Errorf("fal: %w: missing request id", providers.ErrUnavailable)
	}
	c.logger.Debug().Str("request_id", requestID).Msg("fal: request queued")
	return requestID, nil
}

// Status polls one queued request. Completed requests are resolved through the
// response endpoint so the image URL can be returned in the same call.
func (c *Client) Status(ctx context.Context, externalID string) (providers.Status, error) {
	if !c.HasCredentials() {
		return providers.Status{}, ErrMissingAPIKey
	}
	var out statusResponse
	endpoint := fmt.Sprintf("%s/%s/requests/%s/status", c.baseURL, c.model, externalID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return providers.Status{}, err
	}
	switch strings.ToUpper(strings.TrimSpace(out.Status)) {
	case "IN_QUEUE":
		return providers.Status{State: providers.StateSubmitted}, nil
	case "IN_PROGRESS":
		return providers.Status{State: providers.StateProcessing}, nil
	case "COMPLETED", "OK":
		return c.result(ctx, externalID)
	case "FAILED", "ERROR":
		msg := strings.TrimSpace(out.Error.Message)
		if msg == "" {
			msg = "image generation failed"
		}
		return providers.Status{State: providers.StateFailed, Error: msg}, nil
	default:
		return providers.Status{State: providers.StateProcessing}, nil
	}
}

func (c *Client) result(ctx context.Context, externalID string) (providers.Status, error) {
	var out statusResponse
	endpoint := fmt.Sprintf("%s/%s/requests/%s", c.baseURL, c.model, externalID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return providers.Status{}, err
	}
	if len(out.Images) == 0 || strings.TrimSpace(out.Images[0].URL) == "" {
		return providers.Status{State: providers.StateFailed, Error: "generation finished without image"}, nil
	}
	return providers.Status{State: providers.StateCompleted, ResultURL: out.Images[0].URL}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("fal: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("fal: build request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fal: %w: %v", providers.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("fal: %w: read response: %v", providers.ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("fal: %w: status %d", providers.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("fal: %w: status 429", providers.ErrQuotaExhausted)
	case resp.StatusCode >= 400:
		return fmt.Errorf("fal: %w: status %d", providers.ErrRejected, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("fal: %w: decode response: %v", providers.ErrUnavailable, err)
	}
	return nil
}

var _ providers.Client = (*Client)(nil)
