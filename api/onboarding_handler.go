package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/raushankrgupta/style-assistant/models"
	"github.com/raushankrgupta/style-assistant/onboarding"
	"github.com/raushankrgupta/style-assistant/utils"
)

// SetFieldRequest sets one onboarding payload key
type SetFieldRequest struct {
	Key   string          `json:"key" validate:"required"`
	Value json.RawMessage `json:"value"`
}

// NextStepRequest optionally carries the avatar path picked on the branch step
type NextStepRequest struct {
	Branch string `json:"branch" validate:"omitempty,oneof=custom premade"`
}

// DigitalWardrobeRequest registers the inbox to scan for clothing receipts
type DigitalWardrobeRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

// PreferredAvatarRequest picks one of the premade or generated avatars
type PreferredAvatarRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// OnboardingResponse is the wizard as the client renders it
type OnboardingResponse struct {
	Payload    onboarding.Payload     `json:"payload"`
	Step       onboarding.Step        `json:"step"`
	Steps      []onboarding.Step      `json:"steps"`
	Progress   int                    `json:"progress"`
	CanAdvance bool                   `json:"can_advance"`
	Completed  bool                   `json:"completed"`
	Transition *onboarding.Transition `json:"transition,omitempty"`
}

// loadFlow restores the user's wizard, starting a fresh one on first visit
func (h *Handler) loadFlow(ctx context.Context, userID string) (*models.OnboardingRecord, *onboarding.Flow, error) {
	rec, err := h.Onboarding.Load(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		rec = &models.OnboardingRecord{UserID: userID, CurrentStep: onboarding.DefaultSteps[0].Name}
	} else if err != nil {
		return nil, nil, err
	}
	flow, err := onboarding.ResumeFlow(onboarding.DefaultSteps, &rec.Payload, rec.CurrentStep)
	if err != nil {
		return nil, nil, err
	}
	return rec, flow, nil
}

func onboardingResponse(rec *models.OnboardingRecord, flow *onboarding.Flow, meta onboarding.UserMetadata, t *onboarding.Transition) OnboardingResponse {
	return OnboardingResponse{
		Payload:    *flow.Payload,
		Step:       flow.Current(),
		Steps:      flow.Steps,
		Progress:   flow.Progress(),
		CanAdvance: flow.CanAdvance(meta),
		Completed:  rec.Completed,
		Transition: t,
	}
}

func onboardingErrorStatus(err error) int {
	switch {
	case errors.Is(err, onboarding.ErrStepIncomplete), errors.Is(err, onboarding.ErrBranchUnresolved),
		errors.Is(err, onboarding.ErrStyleProfileImages):
		return http.StatusUnprocessableEntity
	case errors.Is(err, onboarding.ErrUnknownField), errors.Is(err, onboarding.ErrInvalidAvatarPath),
		errors.Is(err, onboarding.ErrInvalidFieldPayload):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// GetOnboardingHandler returns the saved payload, the current step and progress
func (h *Handler) GetOnboardingHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Get Onboarding API]")

	user, ok := h.currentUser(w, r, &logMessageBuilder)
	if !ok {
		return
	}
	rec, flow, err := h.loadFlow(r.Context(), user.ID.Hex())
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to load onboarding: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to load onboarding", http.StatusInternalServerError)
		return
	}
	utils.RespondJSON(w, http.StatusOK, onboardingResponse(rec, flow, user.Metadata, nil))
}

// SetFieldHandler sets one payload key and saves the draft
func (h *Handler) SetFieldHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Set Onboarding Field API]")

	var req SetFieldRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	user, ok := h.currentUser(w, r, &logMessageBuilder)
	if !ok {
		return
	}
	ctx := r.Context()
	rec, flow, err := h.loadFlow(ctx, user.ID.Hex())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to load onboarding", http.StatusInternalServerError)
		return
	}

	var value interface{}
	if req.Key == onboarding.FieldStyleProfileState {
		// the photo review in CreateAvatarHandler is the only writer, clients may only clear it
		if len(req.Value) > 0 && string(req.Value) != "null" {
			utils.RespondError(w, &logMessageBuilder, "styleProfileState is set by the photo review and can only be cleared", http.StatusBadRequest)
			return
		}
	} else {
		var s string
		if len(req.Value) > 0 {
			if err := json.Unmarshal(req.Value, &s); err != nil {
				utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("%s expects a string", req.Key), http.StatusBadRequest)
				return
			}
		}
		value = s
	}

	if err := flow.Set(req.Key, value); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), onboardingErrorStatus(err))
		return
	}
	if err := h.Onboarding.Save(ctx, rec); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to save onboarding: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to save onboarding", http.StatusInternalServerError)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Set %s", req.Key))
	utils.RespondJSON(w, http.StatusOK, onboardingResponse(rec, flow, user.Metadata, nil))
}

// NextStepHandler advances the wizard. On the last step it saves the payload
// and marks the user onboarded.
func (h *Handler) NextStepHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Next Onboarding Step API]")

	var req NextStepRequest
	if r.ContentLength != 0 {
		if err := utils.DecodeAndValidate(r, &req); err != nil {
			utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
			return
		}
	}
	user, ok := h.currentUser(w, r, &logMessageBuilder)
	if !ok {
		return
	}
	ctx := r.Context()
	rec, flow, err := h.loadFlow(ctx, user.ID.Hex())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to load onboarding", http.StatusInternalServerError)
		return
	}

	from := flow.Current().Name
	t, err := flow.Advance(user.Metadata, req.Branch)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), onboardingErrorStatus(err))
		return
	}
	rec.CurrentStep = flow.Current().Name
	if t.Save {
		rec.Completed = true
	}

	if err := h.Onboarding.Save(ctx, rec); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to save onboarding: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to save onboarding", http.StatusInternalServerError)
		return
	}
	if t.Save {
		if err := h.Users.Update(ctx, user.ID.Hex(), map[string]interface{}{"onboarded": true}); err != nil {
			utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to mark user onboarded: %v", err))
			utils.RespondError(w, &logMessageBuilder, "Failed to save onboarding", http.StatusInternalServerError)
			return
		}
		utils.AddToLogMessage(&logMessageBuilder, "Onboarding saved")
	} else {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("%s -> %s", from, t.Step))
	}

	utils.RespondJSON(w, http.StatusOK, onboardingResponse(rec, flow, user.Metadata, &t))
}

// BackStepHandler moves the wizard back. Exit is reported on the first step.
func (h *Handler) BackStepHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Back Onboarding Step API]")

	user, ok := h.currentUser(w, r, &logMessageBuilder)
	if !ok {
		return
	}
	ctx := r.Context()
	rec, flow, err := h.loadFlow(ctx, user.ID.Hex())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to load onboarding", http.StatusInternalServerError)
		return
	}

	t, err := flow.Retreat()
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), onboardingErrorStatus(err))
		return
	}
	if !t.Exit {
		rec.CurrentStep = flow.Current().Name
		rec.Completed = false
		if err := h.Onboarding.Save(ctx, rec); err != nil {
			utils.RespondError(w, &logMessageBuilder, "Failed to save onboarding", http.StatusInternalServerError)
			return
		}
	}
	utils.RespondJSON(w, http.StatusOK, onboardingResponse(rec, flow, user.Metadata, &t))
}

// DigitalWardrobeHandler records consent to scan an inbox and confirms by mail
func (h *Handler) DigitalWardrobeHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Digital Wardrobe API]")

	var req DigitalWardrobeRequest
	if r.ContentLength != 0 {
		if err := utils.DecodeAndValidate(r, &req); err != nil {
			utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
			return
		}
	}
	user, ok := h.currentUser(w, r, &logMessageBuilder)
	if !ok {
		return
	}
	email := req.Email
	if email == "" {
		email = user.Email
	}

	wardrobe := &models.DigitalWardrobe{UserID: user.ID.Hex(), Email: email, CreatedAt: time.Now()}
	if err := h.Onboarding.SaveWardrobe(r.Context(), wardrobe); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to save wardrobe consent: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to register digital wardrobe", http.StatusInternalServerError)
		return
	}
	if err := utils.SendWardrobeConsent(h.Mailer, user.Name, email); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to send consent email: %v", err))
	}

	utils.AddToLogMessage(&logMessageBuilder, "Digital wardrobe registered")
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"message": "Digital wardrobe registered", "wardrobe": wardrobe})
}

// PreferredAvatarHandler stores the avatar the user picked
func (h *Handler) PreferredAvatarHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Preferred Avatar API]")

	var req PreferredAvatarRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	user, ok := h.currentUser(w, r, &logMessageBuilder)
	if !ok {
		return
	}
	ctx := r.Context()
	rec, flow, err := h.loadFlow(ctx, user.ID.Hex())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to load onboarding", http.StatusInternalServerError)
		return
	}
	if err := flow.Set(onboarding.FieldPrefAvatarURL, req.URL); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), onboardingErrorStatus(err))
		return
	}
	if err := h.Onboarding.Save(ctx, rec); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to save onboarding", http.StatusInternalServerError)
		return
	}
	utils.RespondJSON(w, http.StatusOK, onboardingResponse(rec, flow, user.Metadata, nil))
}
