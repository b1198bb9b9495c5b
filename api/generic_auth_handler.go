package api

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/raushankrgupta/style-assistant/models"
	"github.com/raushankrgupta/style-assistant/utils"
	"golang.org/x/crypto/bcrypt"
)

// SignupRequest represents the payload for user registration
type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest represents the payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest represents the payload for forgot password
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest represents the payload for verifying OTP
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// ResetPasswordRequest represents the payload for resetting password
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// SignupHandler handles user registration
func (h *Handler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Signup API]")

	var req SignupRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	ctx := r.Context()

	// Check if user already exists
	_, err := h.Users.ByEmail(ctx, req.Email)
	if err == nil {
		utils.RespondError(w, &logMessageBuilder, "User with this email already exists", http.StatusConflict)
		return
	} else if !errors.Is(err, ErrNotFound) {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Database error checking user: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Database error checking user", http.StatusInternalServerError)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to hash password: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	otpCode, err := generateOTP()
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to generate OTP", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	newUser := models.User{
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hashedPassword),
		Status:    models.UserStatusPending,
		OTP:       otpCode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Users.Create(ctx, &newUser); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to create user: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to create user", http.StatusInternalServerError)
		return
	}

	if err := utils.SendOTP(h.Mailer, req.Name, req.Email, "Verify your email", otpCode); err != nil {
		// user exists, client can retry through forgot-password
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to send email: %v", err))
	} else {
		utils.AddToLogMessage(&logMessageBuilder, "User registered successfully. Sent OTP email.")
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully. Please verify your email using the OTP sent.",
		"user":    newUser,
	})
}

// LoginHandler handles user login
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Login API]")

	var req LoginRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	user, err := h.Users.ByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("User not found: %s", req.Email))
			utils.RespondError(w, &logMessageBuilder, "Invalid email or password", http.StatusUnauthorized)
		} else {
			utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Database error: %v", err))
			utils.RespondError(w, &logMessageBuilder, "Database error", http.StatusInternalServerError)
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if user.Status == models.UserStatusPending {
		utils.RespondError(w, &logMessageBuilder, "Please verify your email first", http.StatusForbidden)
		return
	}

	if user.Status == models.UserStatusVerified {
		if err := h.Users.Update(ctx, user.ID.Hex(), map[string]interface{}{"status": models.UserStatusActive}); err != nil {
			utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to update status to active: %v", err))
		} else {
			user.Status = models.UserStatusActive
		}
	}

	h.respondWithToken(w, &logMessageBuilder, user, "Login successful")
}

func (h *Handler) respondWithToken(w http.ResponseWriter, logMessageBuilder *strings.Builder, user *models.User, message string) {
	token, err := utils.GenerateToken(h.JWTSecret, user.ID.Hex())
	if err != nil {
		utils.AddToLogMessage(logMessageBuilder, fmt.Sprintf("Failed to generate token: %v", err))
		utils.RespondError(w, logMessageBuilder, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	utils.AddToLogMessage(logMessageBuilder, message)
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": message,
		"token":   token,
		"user":    user,
	})
}

// VerifyOTPHandler verifies a signup OTP, or confirms a password-reset OTP
// for an already verified account
func (h *Handler) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Verify OTP API]")

	var req VerifyOTPRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	user, err := h.Users.ByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.respondLookupError(w, &logMessageBuilder, err)
		return
	}

	if user.OTP == "" || user.OTP != req.OTP {
		utils.RespondError(w, &logMessageBuilder, "Invalid OTP", http.StatusUnauthorized)
		return
	}

	if user.Status != models.UserStatusPending {
		// OTP stays set, reset-password consumes it
		utils.AddToLogMessage(&logMessageBuilder, "OTP verified for password reset")
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"message": "OTP verified successfully. Please proceed to reset password.",
		})
		return
	}

	if err := h.Users.Update(ctx, user.ID.Hex(), map[string]interface{}{"status": models.UserStatusVerified, "otp": ""}); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to update user status: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to update user status", http.StatusInternalServerError)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, "OTP verified successfully")
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Email verification successful! You can now login.",
	})
}

func (h *Handler) respondLookupError(w http.ResponseWriter, logMessageBuilder *strings.Builder, err error) {
	if errors.Is(err, ErrNotFound) {
		utils.RespondError(w, logMessageBuilder, "User not found", http.StatusNotFound)
		return
	}
	utils.AddToLogMessage(logMessageBuilder, fmt.Sprintf("Database error: %v", err))
	utils.RespondError(w, logMessageBuilder, "Database error", http.StatusInternalServerError)
}

// ForgotPasswordHandler mails a password-reset OTP
func (h *Handler) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Forgot Password API]")

	var req ForgotPasswordRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	user, err := h.Users.ByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.respondLookupError(w, &logMessageBuilder, err)
		return
	}

	otpCode, err := generateOTP()
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to generate OTP", http.StatusInternalServerError)
		return
	}
	if err := h.Users.Update(ctx, user.ID.Hex(), map[string]interface{}{"otp": otpCode}); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to update user OTP: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to update user", http.StatusInternalServerError)
		return
	}

	if err := utils.SendOTP(h.Mailer, user.Name, user.Email, "Reset Password OTP", otpCode); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to send email: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to send email", http.StatusInternalServerError)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, "OTP for password reset sent")
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "OTP sent to your email."})
}

// ResetPasswordHandler handles password reset with OTP
func (h *Handler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Reset Password API]")

	var req ResetPasswordRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	user, err := h.Users.ByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.respondLookupError(w, &logMessageBuilder, err)
		return
	}

	if user.OTP == "" || user.OTP != req.OTP {
		utils.RespondError(w, &logMessageBuilder, "Invalid OTP", http.StatusUnauthorized)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to hash password: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	if err := h.Users.Update(ctx, user.ID.Hex(), map[string]interface{}{"password": string(hashedPassword), "otp": ""}); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to update password: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to update password", http.StatusInternalServerError)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, "Password reset successfully")
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Password reset successfully. Please login with your new password.",
	})
}

// MeHandler returns the signed-in user and their metadata blob
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r, nil)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// currentUser loads the authenticated user, writing the error response on failure
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request, logMessageBuilder *strings.Builder) (*models.User, bool) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	user, err := h.Users.ByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			utils.RespondError(w, logMessageBuilder, "User not found", http.StatusUnauthorized)
		} else {
			utils.RespondError(w, logMessageBuilder, "Database error", http.StatusInternalServerError)
		}
		return nil, false
	}
	return user, true
}
