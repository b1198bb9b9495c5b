package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

var (
	MongoURI           string
	DBName             string
	RedisAddr          string
	RedisPassword      string
	Port               string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GeminiAPIKey       string
	GeminiTextModel    string
	GeminiImageModel   string
	AWSRegion          string
	AWSBucketName      string
	SendGridAPIKey     string
	JWTSecret          string
	SearchBaseURL      string
	GeoLookupURL       string
	LogEnv             string
	ConversationTTL    time.Duration
)

// LoadConfig loads environment variables from .env file
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values or system environment variables")
	}

	MongoURI = getEnv("MONGO_URI", "mongodb://localhost:27017/")
	DBName = getEnv("DB_NAME", "style_assistant")
	RedisAddr = os.Getenv("REDIS_ADDR")
	RedisPassword = os.Getenv("REDIS_PASSWORD")
	Port = getEnv("PORT", "8080")

	GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	GoogleRedirectURL = getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback")

	GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	GeminiTextModel = getEnv("GEMINI_TEXT_MODEL", "gemini-1.5-flash")
	GeminiImageModel = getEnv("GEMINI_IMAGE_MODEL", "gemini-2.0-flash-preview-image-generation")

	AWSRegion = getEnv("AWS_REGION", "ap-south-1")
	AWSBucketName = os.Getenv("AWS_BUCKET_NAME")
	SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")
	JWTSecret = os.Getenv("JWT_SECRET")

	SearchBaseURL = getEnv("SEARCH_BASE_URL", "http://localhost:9000")
	GeoLookupURL = getEnv("GEO_LOOKUP_URL", "http://ip-api.com/json/")
	LogEnv = getEnv("LOG_ENV", "production")

	ConversationTTL = 24 * time.Hour
	if v := os.Getenv("CONVERSATION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			ConversationTTL = d
		} else {
			log.Printf("Invalid CONVERSATION_TTL %q, keeping %s", v, ConversationTTL)
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
