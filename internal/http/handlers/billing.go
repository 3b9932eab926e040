package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/hifarrer/NuSong-sub002/internal/billing"
)

const maxWebhookBody = 1 << 20

// BillingWebhook receives payment provider deliveries. The raw body is read
// before any decoding because the signature covers the exact bytes sent.
func (a *App) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}
	sig := r.Header.Get("X-Billing-Signature")
	if err := a.Billing.Handle(r.Context(), payload, sig); err != nil {
		switch {
		case errors.Is(err, billing.ErrBadSignature):
			a.error(w, http.StatusUnauthorized, "unauthorized", "invalid signature")
		case errors.Is(err, billing.ErrBadPayload):
			a.error(w, http.StatusBadRequest, "bad_request", "malformed event")
		default:
			a.Logger.Error().Err(err).Msg("webhook apply failed")
			// Non-2xx so the provider redelivers.
			a.error(w, http.StatusInternalServerError, "internal", "event not applied")
		}
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "received"})
}
