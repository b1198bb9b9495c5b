package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raushankrgupta/style-assistant/models"
	"github.com/raushankrgupta/style-assistant/onboarding"
	"github.com/raushankrgupta/style-assistant/utils"
)

const maxUploadBytes = 10 << 20

// AvatarJobTimeout bounds one background generation
var AvatarJobTimeout = 5 * time.Minute

// resultWriteTimeout bounds recording a job's outcome. It starts after the job
// context ends so a timed-out job still records its failure.
const resultWriteTimeout = 10 * time.Second

// ProgressInterval is the tick of the avatar progress stream
var ProgressInterval = time.Second

// CreateAvatarRequest starts a personalized avatar from uploaded photos
type CreateAvatarRequest struct {
	ImageURLs []string `json:"image_urls" validate:"required,min=3,max=5,dive,required"`
}

// CreateAvatarResponse reports either the photo review or the started job
type CreateAvatarResponse struct {
	Approved          bool                          `json:"approved"`
	Reviews           []utils.ImageReview           `json:"reviews"`
	StyleProfileState *onboarding.StyleProfileState `json:"styleProfileState"`
	AvatarStatus      string                        `json:"avatar_status,omitempty"`
}

// AvatarProgressResponse is the cosmetic progress of a running job
type AvatarProgressResponse struct {
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Estimated bool   `json:"estimated"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// UploadImageHandler stores one photo and returns its key and a presigned URL
func (h *Handler) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Upload Image API]")

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Error parsing form data", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		utils.RespondError(w, &logMessageBuilder, "only image uploads are accepted", http.StatusBadRequest)
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	objectKey := fmt.Sprintf("uploads/%s/%s%s", userID, uuid.New().String(), ext)

	ctx := r.Context()
	if _, err := h.Storage.Upload(ctx, file, objectKey, contentType); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Upload failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to upload image", http.StatusBadGateway)
		return
	}
	url, err := h.Storage.PresignedURL(ctx, objectKey)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Presign failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to sign image URL", http.StatusBadGateway)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Uploaded %s", objectKey))
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"key": objectKey, "url": url})
}

// CreateAvatarHandler reviews the style photos. If any is rejected the
// review is returned and nothing starts. Otherwise the approved set is saved
// and generation runs in the background.
func (h *Handler) CreateAvatarHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Create Avatar API]")

	var req CreateAvatarRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	user, ok := h.currentUser(w, r, &logMessageBuilder)
	if !ok {
		return
	}
	if user.Metadata.AvatarInProgress() {
		utils.RespondError(w, &logMessageBuilder, "An avatar is already being generated", http.StatusConflict)
		return
	}
	ctx := r.Context()

	reviews, err := h.Assistant.ReviewStyleImages(ctx, req.ImageURLs)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Image review failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to review images", http.StatusBadGateway)
		return
	}

	state := &onboarding.StyleProfileState{
		ImageURLs:        req.ImageURLs,
		ImageStatus:      make(map[string]string, len(req.ImageURLs)),
		RejectionReasons: make(map[string]string),
	}
	for _, url := range req.ImageURLs {
		state.ImageStatus[url] = onboarding.ImagePending
	}
	approved := true
	for _, rv := range reviews {
		if rv.Approved {
			state.ImageStatus[rv.URL] = onboarding.ImageApproved
			continue
		}
		approved = false
		state.ImageStatus[rv.URL] = onboarding.ImageRejected
		state.RejectionReasons[rv.URL] = rv.Reason
	}
	for _, status := range state.ImageStatus {
		if status == onboarding.ImagePending {
			approved = false
		}
	}

	if !approved {
		utils.AddToLogMessage(&logMessageBuilder, "Style photos rejected")
		utils.RespondJSON(w, http.StatusOK, CreateAvatarResponse{Approved: false, Reviews: reviews, StyleProfileState: state})
		return
	}

	rec, flow, err := h.loadFlow(ctx, user.ID.Hex())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to load onboarding", http.StatusInternalServerError)
		return
	}
	state.Processing = true
	state.AvatarStatus = onboarding.AvatarStatusProcessing
	if err := flow.Set(onboarding.FieldStyleProfileState, state); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), onboardingErrorStatus(err))
		return
	}
	if err := h.Onboarding.Save(ctx, rec); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to save onboarding", http.StatusInternalServerError)
		return
	}

	meta := onboarding.UserMetadata{
		AvatarStatus:    onboarding.AvatarStatusProcessing,
		AvatarStartedAt: time.Now(),
	}
	if err := h.Users.Update(ctx, user.ID.Hex(), map[string]interface{}{"metadata": meta}); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to start avatar generation", http.StatusInternalServerError)
		return
	}

	job := &models.AvatarJob{
		UserID:       user.ID.Hex(),
		SourceImages: state.ApprovedURLs(),
		Status:       onboarding.AvatarStatusProcessing,
		CreatedAt:    meta.AvatarStartedAt,
	}
	if err := h.Onboarding.SaveAvatarJob(ctx, job); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to record avatar job: %v", err))
	}

	details := avatarDetails(rec.Payload)
	snapshot := *state
	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		h.generateAvatar(job, details)
	}()

	utils.AddToLogMessage(&logMessageBuilder, "Avatar generation started")
	utils.RespondJSON(w, http.StatusAccepted, CreateAvatarResponse{
		Approved:          true,
		Reviews:           reviews,
		StyleProfileState: &snapshot,
		AvatarStatus:      meta.AvatarStatus,
	})
}

func avatarDetails(p onboarding.Payload) string {
	var parts []string
	for _, kv := range [][2]string{{"gender", p.Gender}, {"clothing size", p.ClothingSize}, {"country", p.Country}} {
		if kv[1] != "" {
			parts = append(parts, kv[0]+": "+kv[1])
		}
	}
	return strings.Join(parts, ", ")
}

// generateAvatar runs detached from the request that started it
func (h *Handler) generateAvatar(job *models.AvatarJob, details string) {
	image, objectKey, err := h.renderAvatar(job, details)

	ctx, cancel := context.WithTimeout(context.Background(), resultWriteTimeout)
	defer cancel()

	if err != nil {
		h.recordAvatarFailure(ctx, job, err)
		return
	}

	now := time.Now()
	job.Status = onboarding.AvatarStatusReady
	job.ResultKey = objectKey
	job.CompletedAt = &now
	if err := h.Onboarding.SaveAvatarJob(ctx, job); err != nil {
		utils.Log.Warnw("Failed to record avatar job", "user_id", job.UserID, "error", err)
	}

	meta := onboarding.UserMetadata{AvatarStatus: onboarding.AvatarStatusReady, AvatarURL: objectKey}
	if err := h.Users.Update(ctx, job.UserID, map[string]interface{}{"metadata": meta}); err != nil {
		utils.Log.Errorw("Failed to mark avatar ready", "user_id", job.UserID, "error", err)
		return
	}
	h.updateStyleState(ctx, job.UserID, func(s *onboarding.StyleProfileState) {
		s.Processing = false
		s.AvatarStatus = onboarding.AvatarStatusReady
		s.AvatarProgress = 100
	}, objectKey)
	utils.Log.Infow("Avatar ready", "user_id", job.UserID, "key", objectKey, "bytes", len(image))
}

// renderAvatar generates and stores the image within AvatarJobTimeout
func (h *Handler) renderAvatar(job *models.AvatarJob, details string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), AvatarJobTimeout)
	defer cancel()

	image, err := h.Assistant.GenerateAvatarImage(ctx, job.SourceImages, details)
	if err != nil {
		return nil, "", err
	}
	objectKey := fmt.Sprintf("avatars/%s/%s.png", job.UserID, uuid.New().String())
	if _, err := h.Storage.Upload(ctx, bytes.NewReader(image), objectKey, http.DetectContentType(image)); err != nil {
		return nil, "", err
	}
	return image, objectKey, nil
}

func (h *Handler) recordAvatarFailure(ctx context.Context, job *models.AvatarJob, cause error) {
	utils.Log.Errorw("Avatar generation failed", "user_id", job.UserID, "error", cause)
	now := time.Now()
	job.Status = onboarding.AvatarStatusFailed
	job.Error = cause.Error()
	job.CompletedAt = &now
	if err := h.Onboarding.SaveAvatarJob(ctx, job); err != nil {
		utils.Log.Warnw("Failed to record avatar job", "user_id", job.UserID, "error", err)
	}
	meta := onboarding.UserMetadata{AvatarStatus: onboarding.AvatarStatusFailed}
	if err := h.Users.Update(ctx, job.UserID, map[string]interface{}{"metadata": meta}); err != nil {
		utils.Log.Errorw("Failed to record avatar failure", "user_id", job.UserID, "error", err)
	}
	h.updateStyleState(ctx, job.UserID, func(s *onboarding.StyleProfileState) {
		s.Processing = false
		s.AvatarStatus = onboarding.AvatarStatusFailed
	})
}

// updateStyleState edits the saved style state and, when given, sets the
// preferred avatar
func (h *Handler) updateStyleState(ctx context.Context, userID string, fn func(*onboarding.StyleProfileState), prefAvatar ...string) {
	rec, err := h.Onboarding.Load(ctx, userID)
	if err != nil {
		utils.Log.Warnw("Failed to load onboarding for avatar update", "user_id", userID, "error", err)
		return
	}
	if rec.Payload.StyleProfileState != nil {
		fn(rec.Payload.StyleProfileState)
	}
	if len(prefAvatar) > 0 {
		rec.Payload.PrefAvatarURL = prefAvatar[0]
	}
	if err := h.Onboarding.Save(ctx, rec); err != nil {
		utils.Log.Warnw("Failed to save onboarding after avatar update", "user_id", userID, "error", err)
	}
}

// Wait blocks until background avatar jobs finish
func (h *Handler) Wait() {
	h.jobs.Wait()
}

func (h *Handler) avatarProgress(ctx context.Context, meta onboarding.UserMetadata, now time.Time) AvatarProgressResponse {
	resp := AvatarProgressResponse{Status: meta.AvatarStatus, Estimated: true}
	switch {
	case meta.AvatarStatus == onboarding.AvatarStatusReady:
		resp.Progress = 100
		resp.Estimated = false
		if urls := utils.PresignImageURLs(ctx, h.Storage, []string{meta.AvatarURL}); len(urls) > 0 {
			resp.AvatarURL = urls[0]
		}
	case meta.AvatarInProgress():
		resp.Progress = onboarding.EstimateAvatarProgress(meta.AvatarStartedAt, now)
	}
	return resp
}

// AvatarProgressHandler returns the elapsed-time estimate for the running job
func (h *Handler) AvatarProgressHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r, nil)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.avatarProgress(r.Context(), user.Metadata, time.Now()))
}

// AvatarProgressStreamHandler sends the estimate as server-sent events every
// tick until the job finishes, the estimate tops out or the client leaves
func (h *Handler) AvatarProgressStreamHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r, nil)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, nil, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	userID := user.ID.Hex()

	send := func(p AvatarProgressResponse) {
		data, _ := json.Marshal(p)
		fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
		flusher.Flush()
	}

	if !user.Metadata.AvatarInProgress() {
		send(h.avatarProgress(ctx, user.Metadata, time.Now()))
		return
	}

	onboarding.TrackAvatarProgress(ctx, user.Metadata.AvatarStartedAt, ProgressInterval, func(pct int) {
		if fresh, err := h.Users.ByID(ctx, userID); err == nil && !fresh.Metadata.AvatarInProgress() {
			send(h.avatarProgress(ctx, fresh.Metadata, time.Now()))
			cancel()
			return
		}
		send(AvatarProgressResponse{Status: user.Metadata.AvatarStatus, Progress: pct, Estimated: true})
	})
}
