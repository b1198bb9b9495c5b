package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raushankrgupta/style-assistant/api"
	"github.com/raushankrgupta/style-assistant/config"
	"github.com/raushankrgupta/style-assistant/conversation"
	"github.com/raushankrgupta/style-assistant/scrapers"
	"github.com/raushankrgupta/style-assistant/search"
	"github.com/raushankrgupta/style-assistant/utils"
)

func main() {
	config.LoadConfig()

	utils.InitLogger(config.LogEnv)
	defer utils.Log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := utils.ConnectMongo(config.MongoURI)
	if err != nil {
		utils.Log.Fatalw("Failed to connect to MongoDB", "error", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()
	store := api.NewMongoStore(mongoClient, config.DBName)

	var chatStore conversation.Store = conversation.NewMemoryStore()
	redisClient, err := utils.ConnectRedis(config.RedisAddr, config.RedisPassword)
	if err != nil {
		utils.Log.Fatalw("Failed to connect to Redis", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		chatStore = conversation.NewRedisStore(redisClient, config.ConversationTTL)
	} else {
		utils.Log.Warn("REDIS_ADDR not set, conversations are kept in memory")
	}

	storage, err := utils.NewS3Storage(ctx, config.AWSRegion, config.AWSBucketName)
	if err != nil {
		utils.Log.Fatalw("Failed to initialize S3", "error", err)
	}

	handler := &api.Handler{
		Users:      store,
		Onboarding: store,
		Shopping:   store,
		Chats:      conversation.NewService(chatStore),
		Search:     search.NewClient(config.SearchBaseURL),
		Assistant:  utils.NewGeminiAssistant(config.GeminiAPIKey, config.GeminiTextModel, config.GeminiImageModel),
		Storage:    storage,
		Mailer:     utils.NewSendGridMailer(config.SendGridAPIKey),
		Scrape:     scrapers.Scrape,
		OAuth:      api.NewGoogleOAuthConfig(config.GoogleClientID, config.GoogleClientSecret, config.GoogleRedirectURL),
		JWTSecret:  config.JWTSecret,
		GeoURL:     config.GeoLookupURL,
	}

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Log.Infow("Server starting", "port", config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Log.Fatalw("Server failed to start", "error", err)
		}
	}()

	<-ctx.Done()
	utils.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Log.Errorw("Graceful shutdown failed", "error", err)
	}
	// let running avatar jobs record their result
	handler.Wait()
}
