package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const maxImageBytes = 10 << 20

var imageHTTPClient = &http.Client{Timeout: 30 * time.Second}

// CopyImagesToStorage downloads images from URLs and stores them under
// folderPrefix. Returns a map of original URL -> object key. Images that fail
// to download are logged and left out of the map.
func CopyImagesToStorage(ctx context.Context, storage ImageStorage, urls []string, folderPrefix string) map[string]string {
	urlToKey := make(map[string]string)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(5)

	for _, url := range urls {
		if url == "" {
			continue
		}
		url := url
		g.Go(func() error {
			objectKey := fmt.Sprintf("%s/%s%s", folderPrefix, uuid.New().String(), imageExt(url))
			if err := downloadAndStore(ctx, storage, url, objectKey); err != nil {
				Log.Warnw("Failed to copy image", "url", url, "error", err)
				return nil
			}
			mu.Lock()
			urlToKey[url] = objectKey
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return urlToKey
}

func imageExt(url string) string {
	name := filepath.Base(strings.SplitN(url, "?", 2)[0])
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return ext
	}
	return ".jpg"
}

func downloadAndStore(ctx context.Context, storage ImageStorage, url, objectKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := imageHTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	// buffered so the upload gets a seekable body with a known length
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(bodyBytes)
	}

	_, err = storage.Upload(ctx, bytes.NewReader(bodyBytes), objectKey, contentType)
	return err
}

// FetchImage downloads an image and sniffs its content type
func FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := imageHTTPClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch image, status: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}
