package handlers

import (
	"net/http"

	"github.com/hifarrer/NuSong-sub002/internal/entitlement"
)

type planDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Price          string `json:"price"`
	MusicPerMonth  int    `json:"music_per_month"`
	ImagesPerMonth int    `json:"images_per_month"`
	VideosPerMonth int    `json:"videos_per_month"`
}

// PlansList is public so the pricing page renders without a session.
func (a *App) PlansList(w http.ResponseWriter, r *http.Request) {
	plans, err := a.Plans.List(r.Context())
	if err != nil {
		a.domainError(w, err, "list plans")
		return
	}
	items := make([]planDTO, 0, len(plans))
	for _, plan := range plans {
		items = append(items, planDTO{
			ID:             plan.ID,
			Name:           plan.Name,
			Price:          plan.Price().StringFixed(2),
			MusicPerMonth:  plan.MusicPerMonth,
			ImagesPerMonth: plan.ImagesPerMonth,
			VideosPerMonth: plan.VideosPerMonth,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

type usageBucketDTO struct {
	Used int `json:"used"`
	Max  int `json:"max"`
}

// MeUsage reports consumption against the caller's plan for the current
// billing period.
func (a *App) MeUsage(w http.ResponseWriter, r *http.Request) {
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
	used, err := a.Gate.UsageSummary(r.Context(), userID)
	if err != nil {
		a.domainError(w, err, "usage summary")
		return
	}

	limits := map[entitlement.Bucket]int{}
	if user.PlanID != "" {
		if plan, err := a.Plans.GetByID(r.Context(), user.PlanID); err == nil {
			limits[entitlement.BucketMusic] = plan.MusicPerMonth
			limits[entitlement.BucketImage] = plan.ImagesPerMonth
			limits[entitlement.BucketVideo] = plan.VideosPerMonth
		}
	}

	a.json(w, http.StatusOK, map[string]any{
		"plan_status":  string(user.PlanStatus),
		"period_start": user.PeriodStart.UTC(),
		"period_end":   user.PeriodEnd.UTC(),
		"usage": map[string]usageBucketDTO{
			string(entitlement.BucketMusic): {Used: used[entitlement.BucketMusic], Max: limits[entitlement.BucketMusic]},
			string(entitlement.BucketImage): {Used: used[entitlement.BucketImage], Max: limits[entitlement.BucketImage]},
			string(entitlement.BucketVideo): {Used: used[entitlement.BucketVideo], Max: limits[entitlement.BucketVideo]},
		},
	})
}
