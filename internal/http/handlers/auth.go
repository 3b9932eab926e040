package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/middleware"
)

type googleVerifyRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type googleVerifyResponse struct {
	Token string         `json:"token"`
	User  userProfileDTO `json:"user"`
}

type userProfileDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Picture     string `json:"picture,omitempty"`
	Role        string `json:"role"`
	PlanID      string `json:"plan_id,omitempty"`
	PlanStatus  string `json:"plan_status"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// AuthGoogleVerify exchanges a Google ID token for a service token,
// provisioning the account on first sign-in.
func (a *App) AuthGoogleVerify(w http.ResponseWriter, r *http.Request) {
	var req googleVerifyRequest
	if !a.decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	identity, err := a.GoogleVerifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("google verify failed")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid google token")
		return
	}
	if identity.Email == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "incomplete google token")
		return
	}

	user, err := a.Users.UpsertByGoogleSub(r.Context(), &domain.User{
		GoogleSub: identity.Subject,
		Email:     identity.Email,
		Name:      identity.Name,
		Picture:   identity.Picture,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("upsert user failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist user")
		return
	}

	token, err := middleware.SignJWT(a.Cfg.JWTSecret, middleware.TokenClaims{
		Sub:      user.ID,
		Email:    user.Email,
		Role:     string(user.Role),
		Exp:      time.Now().Add(24 * time.Hour).Unix(),
		Issuer:   "nusong-api",
		Audience: "nusong-clients",
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}

	a.json(w, http.StatusOK, googleVerifyResponse{Token: token, User: profileDTO(user)})
}

// Me returns the authenticated profile.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.domainError(w, err, "get user")
		return
	}
	a.json(w, http.StatusOK, profileDTO(user))
}

func profileDTO(user *domain.User) userProfileDTO {
	return userProfileDTO{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Picture:     user.Picture,
		Role:        string(user.Role),
		PlanID:      user.PlanID,
		PlanStatus:  string(user.PlanStatus),
		PeriodStart: user.PeriodStart.UTC().Format(time.RFC3339),
		PeriodEnd:   user.PeriodEnd.UTC().Format(time.RFC3339),
	}
}
