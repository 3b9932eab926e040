// Package billing consumes webhook events from the payment provider and
// applies them to user plan state. Events are rejected before any parsing
// unless their signature verifies.
package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hifarrer/NuSong-sub002/internal/infra"
	"github.com/hifarrer/NuSong-sub002/internal/sqlinline"
)

var (
	// ErrBadSignature is returned for missing, malformed, expired, or
	// mismatched webhook signatures.
	ErrBadSignature = errors.New("billing: invalid webhook signature")
	// ErrBadPayload is returned when a verified payload cannot be decoded.
	ErrBadPayload = errors.New("billing: malformed webhook payload")
)

// Event is the decoded webhook body. Period bounds arrive as unix seconds.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	Customer    string `json:"customer"`
	Email       string `json:"email"`
	Plan        string `json:"plan"`
	Status      string `json:"status"`
	PeriodStart int64  `json:"period_start"`
	PeriodEnd   int64  `json:"period_end"`
}

// VerifySignature checks a `t=<unix>,v1=<hex hmac>` header against the raw
// payload. The signed string is "<t>.<payload>" with HMAC-SHA256 over the
// shared secret. Timestamps outside the tolerance window are rejected to
// stop replay of captured deliveries.
func VerifySignature(payload []byte, header, secret string, now time.Time, tolerance time.Duration) error {
	if secret == "" || header == "" {
		return ErrBadSignature
	}
	var ts string
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts = value
		case "v1":
			sigs = append(sigs, value)
		}
	}
	if ts == "" || len(sigs) == 0 {
		return ErrBadSignature
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	at := time.Unix(unix, 0)
	if at.Before(now.Add(-tolerance)) || at.After(now.Add(tolerance)) {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	want := mac.Sum(nil)
	for _, sig := range sigs {
		got, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(want, got) {
			return nil
		}
	}
	return ErrBadSignature
}

// Processor verifies and applies webhook deliveries.
type Processor struct {
	sql       infra.SQLExecutor
	secret    string
	tolerance time.Duration
	logger    infra.Logger
	now       func() time.Time
}

func NewProcessor(sql infra.SQLExecutor, secret string, tolerance time.Duration, logger infra.Logger) *Processor {
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &Processor{sql: sql, secret: secret, tolerance: tolerance, logger: logger, now: time.Now}
}

// Handle verifies the delivery and applies it. Unknown event types verify,
// log, and succeed so the provider does not retry them forever.
func (p *Processor) Handle(ctx context.Context, payload []byte, sigHeader string) error {
	if err := VerifySignature(payload, sigHeader, p.secret, p.now(), p.tolerance); err != nil {
		return err
	}
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return ErrBadPayload
	}
	if event.Data.Customer == "" {
		return ErrBadPayload
	}
	return p.apply(ctx, event)
}

func (p *Processor) apply(ctx context.Context, event Event) error {
	data := event.Data
	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		status := data.Status
		if status == "" {
			status = "active"
		}
		var userID string
		err := p.sql.QueryRow(ctx, sqlinline.QApplySubscription, data.Customer, data.Plan, status, data.Email).Scan(&userID)
		if err != nil {
			if infra.IsNoRows(err) {
				p.logger.Warn().Str("customer", data.Customer).Msg("billing: subscription event for unknown customer")
				return nil
			}
			return fmt.Errorf("apply subscription: %w", err)
		}
		p.logger.Info().Str("user_id", userID).Str("plan", data.Plan).Str("status", status).Msg("billing: subscription applied")
		return nil

	case "customer.subscription.deleted":
		var userID string
		err := p.sql.QueryRow(ctx, sqlinline.QApplySubscription, data.Customer, "free", "canceled", data.Email).Scan(&userID)
		if err != nil {
			if infra.IsNoRows(err) {
				return nil
			}
			return fmt.Errorf("cancel subscription: %w", err)
		}
		p.logger.Info().Str("user_id", userID).Msg("billing: subscription canceled")
		return nil

	case "invoice.payment_succeeded":
		start := time.Unix(data.PeriodStart, 0).UTC()
		end := time.Unix(data.PeriodEnd, 0).UTC()
		if data.PeriodStart <= 0 || !end.After(start) {
			return ErrBadPayload
		}
		var userID string
		err := p.sql.QueryRow(ctx, sqlinline.QRollBillingPeriod, data.Customer, start, end).Scan(&userID)
		if err != nil {
			if infra.IsNoRows(err) {
				return nil
			}
			return fmt.Errorf("roll billing period: %w", err)
		}
		// Usage counters are keyed by period start, so the new period
		// begins with zero consumption without touching counter rows.
		p.logger.Info().Str("user_id", userID).Time("period_start", start).Msg("billing: period rolled")
		return nil

	case "invoice.payment_failed":
		var userID string
		err := p.sql.QueryRow(ctx, sqlinline.QMarkPastDue, data.Customer).Scan(&userID)
		if err != nil {
			if infra.IsNoRows(err) {
				return nil
			}
			return fmt.Errorf("mark past due: %w", err)
		}
		p.logger.Warn().Str("user_id", userID).Msg("billing: payment failed, plan past due")
		return nil

	default:
		p.logger.Debug().Str("type", event.Type).Msg("billing: ignoring event type")
		return nil
	}
}
