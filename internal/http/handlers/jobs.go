package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/entitlement"
	"github.com/hifarrer/NuSong-sub002/internal/providers"
)

type musicGenerateRequest struct {
	Title           string `json:"title" validate:"omitempty,max=200"`
	Prompt          string `json:"prompt" validate:"required,max=4000"`
	Tags            string `json:"tags" validate:"omitempty,max=500"`
	Lyrics          string `json:"lyrics" validate:"omitempty,max=8000"`
	Instrumental    bool   `json:"instrumental"`
	DurationSeconds int    `json:"duration_seconds" validate:"omitempty,min=10,max=480"`
	Visibility      string `json:"visibility" validate:"omitempty,oneof=public private"`
}

type audioToMusicRequest struct {
	Title      string `json:"title" validate:"omitempty,max=200"`
	Prompt     string `json:"prompt" validate:"required,max=4000"`
	Tags       string `json:"tags" validate:"omitempty,max=500"`
	SourceURL  string `json:"source_url" validate:"required,url"`
	Visibility string `json:"visibility" validate:"omitempty,oneof=public private"`
}

type imageGenerateRequest struct {
	Title  string `json:"title" validate:"omitempty,max=200"`
	Prompt string `json:"prompt" validate:"required,max=4000"`
}

type videoTranscodeRequest struct {
	Title     string `json:"title" validate:"omitempty,max=200"`
	SourceURL string `json:"source_url" validate:"required,url"`
}

type jobSubmitResponse struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"`
	RemainingQuota int    `json:"remaining_quota"`
}

func (a *App) MusicGenerate(w http.ResponseWriter, r *http.Request) {
	var req musicGenerateRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.submitJob(w, r, domain.JobKindTextToMusic, req.Title, domain.Visibility(req.Visibility), providers.Input{
		Prompt:          req.Prompt,
		Tags:            req.Tags,
		Lyrics:          req.Lyrics,
		Instrumental:    req.Instrumental,
		DurationSeconds: req.DurationSeconds,
	})
}

func (a *App) MusicFromAudio(w http.ResponseWriter, r *http.Request) {
	var req audioToMusicRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.submitJob(w, r, domain.JobKindAudioToMusic, req.Title, domain.Visibility(req.Visibility), providers.Input{
		Prompt:    req.Prompt,
		Tags:      req.Tags,
		SourceURL: req.SourceURL,
	})
}

func (a *App) ImagesGenerate(w http.ResponseWriter, r *http.Request) {
	var req imageGenerateRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.submitJob(w, r, domain.JobKindImage, req.Title, "", providers.Input{Prompt: req.Prompt})
}

func (a *App) VideosTranscode(w http.ResponseWriter, r *http.Request) {
	var req videoTranscodeRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.submitJob(w, r, domain.JobKindVideoTranscode, req.Title, "", providers.Input{SourceURL: req.SourceURL})
}

// submitJob is the single path every generation kind goes through: reserve a
// quota unit, persist the pending row, hand it to the provider, then start
// tracking. The quota unit is returned when the row cannot be created or the
// provider was unreachable; a provider-side rejection keeps it consumed.
func (a *App) submitJob(w http.ResponseWriter, r *http.Request, kind domain.JobKind, title string, visibility domain.Visibility, input providers.Input) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	client, ok := a.Clients[kind]
	if !ok {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "generation kind not configured")
		return
	}

	reservation, err := a.Gate.CheckAndReserve(r.Context(), userID, kind)
	if err != nil {
		a.domainError(w, err, "reserve quota")
		return
	}

	inputJSON, _ := json.Marshal(input)
	job := &domain.GenerationJob{
		UserID:     userID,
		Kind:       kind,
		Title:      title,
		InputJSON:  inputJSON,
		Visibility: visibility,
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.releaseQuota(r.Context(), reservation)
		a.domainError(w, err, "create job")
		return
	}

	input.RequestID = job.ID
	externalID, err := client.Submit(r.Context(), input)
	if err != nil {
		a.failSubmission(w, r, job.ID, reservation, err)
		return
	}

	if err := a.Jobs.RecordSubmitted(r.Context(), job.ID, externalID); err != nil {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("record submitted failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist submission")
		return
	}

	job.Status = domain.JobStatusSubmitted
	job.ExternalJobID = externalID
	a.Tracker.Track(*job)

	a.json(w, http.StatusAccepted, jobSubmitResponse{
		JobID:          job.ID,
		Status:         string(domain.JobStatusSubmitted),
		RemainingQuota: reservation.Remaining(),
	})
}

func (a *App) failSubmission(w http.ResponseWriter, r *http.Request, jobID string, reservation *entitlement.Reservation, cause error) {
	message := "provider rejected request"
	status := http.StatusBadGateway
	slug := "provider_rejected"
	releaseUnit := false

	switch {
	case errors.Is(cause, providers.ErrUnavailable):
		message = "provider unavailable"
		status = http.StatusServiceUnavailable
		slug = "provider_unavailable"
		releaseUnit = true
	case errors.Is(cause, providers.ErrQuotaExhausted):
		message = "provider credits exhausted"
		slug = "provider_quota"
	}

	if err := a.Jobs.RecordStatus(r.Context(), jobID, domain.JobUpdate{
		Status:       domain.JobStatusFailed,
		ErrorMessage: message,
	}); err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("record submit failure failed")
	}
	if releaseUnit {
		a.releaseQuota(r.Context(), reservation)
	}
	a.Logger.Warn().Err(cause).Str("job_id", jobID).Msg("provider submission failed")
	a.error(w, status, slug, message)
}

func (a *App) releaseQuota(ctx context.Context, res *entitlement.Reservation) {
	if err := a.Gate.Release(ctx, res); err != nil {
		a.Logger.Error().Err(err).Str("user_id", res.UserID).Msg("quota release failed")
	}
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.Get(r.Context(), jobID, userID)
	if err != nil {
		a.domainError(w, err, "get job")
		return
	}
	a.json(w, http.StatusOK, jobDTO(job))
}

func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	kind := domain.JobKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown kind")
		return
	}
	status := domain.JobStatus(r.URL.Query().Get("status"))
	jobs, err := a.Jobs.ListByOwner(r.Context(), userID, kind, status)
	if err != nil {
		a.domainError(w, err, "list jobs")
		return
	}
	items := make([]map[string]any, 0, len(jobs))
	for i := range jobs {
		items = append(items, jobDTO(&jobs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

type jobMetadataRequest struct {
	Title      *string `json:"title" validate:"omitempty,max=200"`
	Visibility *string `json:"visibility" validate:"omitempty,oneof=public private"`
	AlbumID    *string `json:"album_id" validate:"omitempty"`
}

// JobUpdateMetadata renames a completed track, toggles its visibility, or
// moves it between albums. In-flight jobs cannot be edited.
func (a *App) JobUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	var req jobMetadataRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Title == nil && req.Visibility == nil && req.AlbumID == nil {
		a.error(w, http.StatusBadRequest, "bad_request", "no fields to update")
		return
	}
	var visibility *domain.Visibility
	if req.Visibility != nil {
		v := domain.Visibility(*req.Visibility)
		visibility = &v
	}
	if err := a.Jobs.UpdateMetadata(r.Context(), jobID, userID, req.Title, visibility, req.AlbumID); err != nil {
		a.domainError(w, err, "update job metadata")
		return
	}
	job, err := a.Jobs.Get(r.Context(), jobID, userID)
	if err != nil {
		a.domainError(w, err, "get job")
		return
	}
	a.json(w, http.StatusOK, jobDTO(job))
}

func jobDTO(job *domain.GenerationJob) map[string]any {
	out := map[string]any{
		"id":         job.ID,
		"kind":       string(job.Kind),
		"status":     string(job.Status),
		"title":      job.Title,
		"visibility": string(job.Visibility),
		"created_at": job.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": job.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if job.AlbumID != "" {
		out["album_id"] = job.AlbumID
	}
	switch job.Status {
	case domain.JobStatusCompleted:
		out["result_url"] = job.ResultURL
		if job.ImageURL != "" {
			out["image_url"] = job.ImageURL
		}
	case domain.JobStatusFailed:
		out["error"] = job.ErrorMessage
	}
	return out
}
