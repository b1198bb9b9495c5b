package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validate checks request DTO struct tags
var Validate = validator.New()

// RespondJSON sends a JSON response with the given status code and payload.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// headers are already out, all we can do is log
		Log.Errorw("Error encoding JSON response", "error", err)
	}
}

// RespondError sends a JSON error response and logs the error to the provided logger.
// If logger is nil, it logs straight through zap.
func RespondError(w http.ResponseWriter, logger *strings.Builder, message string, status int) {
	if logger != nil {
		AddToLogMessage(logger, message)
	} else {
		Log.Warnw(message, "status", status)
	}
	RespondJSON(w, status, map[string]string{"error": message})
}

// DecodeAndValidate reads a JSON body into dst and runs the validator over it
func DecodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	if err := Validate.Struct(dst); err != nil {
		return fmt.Errorf("validation failed: %v", err)
	}
	return nil
}

// PresignImageURLs generates presigned URLs for a slice of image keys/URLs.
// If a URL is already http/https, it's kept as is.
// Storage failures result in the original key being returned as fallback.
func PresignImageURLs(ctx context.Context, storage ImageStorage, images []string) []string {
	presignedURLs := make([]string, 0, len(images))
	for _, img := range images {
		if strings.HasPrefix(img, "http") || storage == nil {
			presignedURLs = append(presignedURLs, img)
			continue
		}
		if url, err := storage.PresignedURL(ctx, img); err == nil {
			presignedURLs = append(presignedURLs, url)
		} else {
			presignedURLs = append(presignedURLs, img)
		}
	}
	return presignedURLs
}

// LatencyMiddleware logs the duration of each request
func LatencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		Log.Infow("[LATENCY]", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// CORSMiddleware allows the mobile and web clients to call the API
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
