// Package providers defines the shared contract that every external
// generation API is normalized into. Provider-specific request and response
// shapes never leave their own subpackage.
package providers

import (
	"context"
	"errors"
)

// State is the normalized lifecycle state reported by a provider.
type State string

const (
	StateSubmitted  State = "submitted"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

var (
	// ErrUnavailable marks a transient network or 5xx failure. Callers retry
	// the same call later instead of failing the job.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrRejected marks a 4xx validation rejection by the provider.
	ErrRejected = errors.New("provider rejected request")
	// ErrQuotaExhausted marks a provider-side quota or credit exhaustion.
	ErrQuotaExhausted = errors.New("provider quota exceeded")
)

// Input is the provider-agnostic submission payload. Unused fields are left
// empty depending on the job kind.
type Input struct {
	Prompt          string
	Tags            string
	Lyrics          string
	DurationSeconds int
	SourceURL       string
	Instrumental    bool
	RequestID       string
}

// Status is the normalized poll result.
type Status struct {
	State     State
	ResultURL string
	ImageURL  string
	Error     string
}

// Client submits work to a third-party generation API and reports its state.
// A provider-reported terminal failure is returned as StateFailed with a
// message, never as a Go error; errors are reserved for the taxonomy above.
type Client interface {
	Submit(ctx context.Context, in Input) (string, error)
	Status(ctx context.Context, externalID string) (Status, error)
}
