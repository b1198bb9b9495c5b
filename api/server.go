package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/raushankrgupta/style-assistant/conversation"
	"github.com/raushankrgupta/style-assistant/models"
	"github.com/raushankrgupta/style-assistant/search"
	"github.com/raushankrgupta/style-assistant/utils"
	"golang.org/x/oauth2"
)

type contextKey string

const userIDKey contextKey = "user_id"
const tokenKey contextKey = "token"

// ProductSearcher is the remote product search backend
type ProductSearcher interface {
	SearchProducts(ctx context.Context, history []search.HistoryItem, query, token string) ([]conversation.Product, error)
	ProductsByCategory(ctx context.Context, history []search.HistoryItem, query, token string) ([]conversation.CategoryProducts, error)
}

// ProductScraper reads a pasted product link
type ProductScraper func(ctx context.Context, url string) (*models.ScrapedProduct, error)

// Handler carries the collaborators every route needs
type Handler struct {
	Users      UserStore
	Onboarding OnboardingStore
	Shopping   ShoppingStore
	Chats      *conversation.Service
	Search     ProductSearcher
	Assistant  utils.Assistant
	Storage    utils.ImageStorage
	Mailer     utils.Mailer
	Scrape     ProductScraper
	OAuth      *oauth2.Config
	JWTSecret  string
	GeoURL     string

	jobs sync.WaitGroup
}

// Routes registers every endpoint on a fresh router
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(utils.CORSMiddleware, utils.LatencyMiddleware)
	// preflight never reaches a method-bound route, so answer it here
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	r.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/countries", h.CountriesHandler).Methods(http.MethodGet)
	r.HandleFunc("/geo/country", h.GeoCountryHandler).Methods(http.MethodGet)

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/signup", h.SignupHandler).Methods(http.MethodPost)
	auth.HandleFunc("/verify-otp", h.VerifyOTPHandler).Methods(http.MethodPost)
	auth.HandleFunc("/login", h.LoginHandler).Methods(http.MethodPost)
	auth.HandleFunc("/forgot-password", h.ForgotPasswordHandler).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", h.ResetPasswordHandler).Methods(http.MethodPost)
	auth.HandleFunc("/google/login", h.GoogleLoginHandler).Methods(http.MethodGet)
	auth.HandleFunc("/google/callback", h.GoogleCallbackHandler).Methods(http.MethodGet)

	private := r.NewRoute().Subrouter()
	private.Use(h.AuthMiddleware)
	private.HandleFunc("/auth/me", h.MeHandler).Methods(http.MethodGet)

	private.HandleFunc("/onboarding", h.GetOnboardingHandler).Methods(http.MethodGet)
	private.HandleFunc("/onboarding/field", h.SetFieldHandler).Methods(http.MethodPost)
	private.HandleFunc("/onboarding/next", h.NextStepHandler).Methods(http.MethodPost)
	private.HandleFunc("/onboarding/back", h.BackStepHandler).Methods(http.MethodPost)
	private.HandleFunc("/onboarding/digital-wardrobe", h.DigitalWardrobeHandler).Methods(http.MethodPost)
	private.HandleFunc("/onboarding/avatar/preferred", h.PreferredAvatarHandler).Methods(http.MethodPost)

	private.HandleFunc("/upload-image", h.UploadImageHandler).Methods(http.MethodPost)
	private.HandleFunc("/avatar", h.CreateAvatarHandler).Methods(http.MethodPost)
	private.HandleFunc("/avatar/progress", h.AvatarProgressHandler).Methods(http.MethodGet)
	private.HandleFunc("/avatar/progress/stream", h.AvatarProgressStreamHandler).Methods(http.MethodGet)

	private.HandleFunc("/chat", h.GetChatHandler).Methods(http.MethodGet)
	private.HandleFunc("/chat", h.ResetChatHandler).Methods(http.MethodDelete)
	private.HandleFunc("/chat/messages", h.SendMessageHandler).Methods(http.MethodPost)
	private.HandleFunc("/chat/groups/{id}/more", h.MoreProductsHandler).Methods(http.MethodPost)
	private.HandleFunc("/chat/groups/{id}/category", h.CategoryHandler).Methods(http.MethodPost)
	private.HandleFunc("/chat/groups/{id}/products/{pid}/query", h.ProductQueryHandler).Methods(http.MethodPost)

	private.HandleFunc("/shopping-list", h.AddShoppingItemHandler).Methods(http.MethodPost)
	private.HandleFunc("/shopping-list", h.ShoppingListHandler).Methods(http.MethodGet)
	private.HandleFunc("/reactions", h.ReactionHandler).Methods(http.MethodPost)

	return r
}

// AuthMiddleware validates the bearer token and stores the user id in the context
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			utils.RespondError(w, nil, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		userID, err := utils.UserIDFromToken(h.JWTSecret, token)
		if err != nil {
			utils.RespondError(w, nil, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext returns the id set by AuthMiddleware
func GetUserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", errors.New("user id not found in context")
	}
	return userID, nil
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// HealthHandler reports liveness
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
