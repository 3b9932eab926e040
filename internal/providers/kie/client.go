// Package kie wraps the KIE.ai music generation API behind the shared
// provider contract. It serves both text-to-music and audio-to-music jobs.
package kie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hifarrer/NuSong-sub002/internal/infra"
	"github.com/hifarrer/NuSong-sub002/internal/providers"
)

// ErrMissingAPIKey indicates that the client was configured without
// credentials. It wraps ErrUnavailable: nothing ever reaches the provider,
// so callers treat it like an outage, not a rejection.
var ErrMissingAPIKey = fmt.Errorf("kie: %w: api key is required", providers.ErrUnavailable)

// Options configures the KIE music client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the KIE music generation API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type generateRequest struct {
	Model        string `json:"model"`
	Prompt       string `json:"prompt,omitempty"`
	Style        string `json:"style,omitempty"`
	Lyrics       string `json:"lyrics,omitempty"`
	Duration     int    `json:"duration,omitempty"`
	Instrumental bool   `json:"instrumental"`
	UploadURL    string `json:"uploadUrl,omitempty"`
	CustomMode   bool   `json:"customMode"`
}

type generateResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

type recordInfoResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID   string `json:"taskId"`
		Status   string `json:"status"`
		ErrorMsg string `json:"errorMessage"`
		Response struct {
			SunoData []struct {
				AudioURL  string `json:"audioUrl"`
				ImageURL  string `json:"imageUrl"`
				StreamURL string `json:"streamAudioUrl"`
			} `json:"sunoData"`
		} `json:"response"`
	} `json:"data"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
// A client without an API key is refused here so a misconfigured deployment
// disables the kind instead of registering a client that cannot submit.
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
		baseURL = "https://api.kie.ai"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "V4_5"
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

// Submit starts a music generation task and returns the provider task id.
func (c *Client) Submit(ctx context.Context, in providers.Input) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	payload := generateRequest{
		Model:        c.model,
		Prompt:       strings.TrimSpace(in.Prompt),
		Style:        strings.TrimSpace(in.Tags),
		Lyrics:       in.Lyrics,
		Duration:     in.DurationSeconds,
		Instrumental: in.Instrumental,
		UploadURL:    strings.TrimSpace(in.SourceURL),
		CustomMode:   in.Lyrics != "",
	}
	if payload.Prompt == "" && payload.Style == "" && payload.UploadURL == "" {
		return "", fmt.Errorf("kie: %w: prompt, style or source audio required", providers.ErrRejected)
	}

	endpoint := c.baseURL + "/api/v1/generate"
	if payload.UploadURL != "" {
		endpoint = c.baseURL + "/api/v1/generate/upload-cover"
	}

	var out generateResponse
	if err := c.do(ctx, http.MethodPost, endpoint, payload, &out); err != nil {
		return "", err
	}
	switch out.Code {
	case 200:
	case 429, 430, 455:
		return "", fmt.Errorf("kie: %w: %s", providers.ErrQuotaExhausted, out.Msg)
	default:
		return "", fmt.Errorf("kie: %w: %s", providers.ErrRejected, out.Msg)
	}
	taskID := strings.TrimSpace(out.Data.TaskID)
	if taskID == "" {
		return "", fmt.Errorf("kie: %w: missing task id", providers.ErrUnavailable)
	}
	c.logger.Debug().Str("task_id", taskID).Msg("kie: task submitted")
	return taskID, nil
}

// Status polls one task and normalizes the provider state vocabulary.
func (c *Client) Status(ctx context.Context, externalID string) (providers.Status, error) {
	if !c.HasCredentials() {
		return providers.Status{}, ErrMissingAPIKey
	}
	endpoint := c.baseURL + "/api/v1/generate/record-info?taskId=" + url.QueryEscape(externalID)
	var out recordInfoResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return providers.Status{}, err
	}
	if out.Code != 200 {
		return providers.Status{}, fmt.Errorf("kie: %w: %s", providers.ErrUnavailable, out.Msg)
	}
	return normalizeStatus(out), nil
}

func normalizeStatus(out recordInfoResponse) providers.Status {
	switch strings.ToUpper(strings.TrimSpace(out.Data.Status)) {
	case "PENDING", "SUBMITTED", "QUEUED":
		return providers.Status{State: providers.StateSubmitted}
	case "TEXT_SUCCESS", "FIRST_SUCCESS", "PROCESSING", "RUNNING":
		return providers.Status{State: providers.StateProcessing}
	case "SUCCESS", "SUCCEEDED", "COMPLETE":
		status := providers.Status{State: providers.StateCompleted}
		if tracks := out.Data.Response.SunoData; len(tracks) > 0 {
			status.ResultURL = tracks[0].AudioURL
			if status.ResultURL == "" {
				status.ResultURL = tracks[0].StreamURL
			}
			status.ImageURL = tracks[0].ImageURL
		}
		if status.ResultURL == "" {
			return providers.Status{State: providers.StateFailed, Error: "generation finished without audio"}
		}
		return status
	case "CREATE_TASK_FAILED", "GENERATE_AUDIO_FAILED", "SENSITIVE_WORD_ERROR", "FAILED", "ERROR":
		msg := strings.TrimSpace(out.Data.ErrorMsg)
		if msg == "" {
			msg = "music generation failed"
		}
		return providers.Status{State: providers.StateFailed, Error: msg}
	default:
		// Unknown vocabulary from the provider is treated as still in flight.
		return providers.Status{State: providers.StateProcessing}
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("kie: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("kie: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kie: %w: %v", providers.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("kie: %w: read response: %v", providers.ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("kie: %w: status %d", providers.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("kie: %w: status 429", providers.ErrQuotaExhausted)
	case resp.StatusCode >= 400:
		return fmt.Errorf("kie: %w: status %d: %s", providers.ErrRejected, resp.StatusCode, truncate(raw, 200))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("kie: %w: decode response: %v", providers.ErrUnavailable, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n]
	}
	return s
}

var _ providers.Client = (*Client)(nil)
