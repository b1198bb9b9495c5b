package api

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/raushankrgupta/style-assistant/models"
	"github.com/raushankrgupta/style-assistant/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const oauthStateCookie = "oauth_state"

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// NewGoogleOAuthConfig builds the Google sign-in client
func NewGoogleOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		RedirectURL:  redirectURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// GoogleLoginHandler handles the login request by redirecting to Google
func (h *Handler) GoogleLoginHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Google Login API]")

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to create state", http.StatusInternalServerError)
		return
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	utils.AddToLogMessage(&logMessageBuilder, "Redirecting to Google Auth")
	http.Redirect(w, r, h.OAuth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallbackHandler exchanges the code, links or creates the account and
// returns a session token
func (h *Handler) GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Google Callback API]")

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || r.FormValue("state") != cookie.Value {
		utils.RespondError(w, &logMessageBuilder, "State invalid", http.StatusBadRequest)
		return
	}

	code := r.FormValue("code")
	if code == "" {
		utils.RespondError(w, &logMessageBuilder, "Code not found", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	token, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to exchange token: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to exchange token", http.StatusBadGateway)
		return
	}

	resp, err := h.OAuth.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to get user info: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to get user info", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.Email == "" {
		utils.RespondError(w, &logMessageBuilder, "Failed to read user info", http.StatusBadGateway)
		return
	}
	email := strings.ToLower(info.Email)

	user, err := h.Users.ByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		now := time.Now()
		user = &models.User{
			Name:      info.Name,
			Email:     email,
			Status:    models.UserStatusActive,
			GoogleID:  info.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := h.Users.Create(ctx, user); err != nil {
			utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to create user: %v", err))
			utils.RespondError(w, &logMessageBuilder, "Failed to create user", http.StatusInternalServerError)
			return
		}
		utils.AddToLogMessage(&logMessageBuilder, "Created account from Google profile")
	case err != nil:
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Database error: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Database error", http.StatusInternalServerError)
		return
	case user.GoogleID == "":
		set := map[string]interface{}{"google_id": info.ID}
		if user.Status == models.UserStatusPending && info.VerifiedEmail {
			set["status"] = models.UserStatusActive
			user.Status = models.UserStatusActive
		}
		if err := h.Users.Update(ctx, user.ID.Hex(), set); err != nil {
			utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to link Google account: %v", err))
		}
		user.GoogleID = info.ID
	}

	h.respondWithToken(w, &logMessageBuilder, user, "Google login successful")
}
