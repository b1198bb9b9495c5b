package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raushankrgupta/style-assistant/conversation"
)

// RetryBackoff is the fixed pause before the single retry
var RetryBackoff = 1 * time.Second

// Client talks to the remote product search backend
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a 30s timeout
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// HistoryItem is one chat turn as the search backend expects it
type HistoryItem struct {
	Role  string `json:"role"`
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// HistoryFromMessages converts a transcript for the wire
func HistoryFromMessages(msgs []conversation.Message) []HistoryItem {
	out := make([]HistoryItem, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryItem{Role: m.Role, Text: m.Text, Image: m.Image})
	}
	return out
}

type searchRequest struct {
	History []HistoryItem `json:"history"`
	Query   string        `json:"query,omitempty"`
}

type productsResponse struct {
	Products []conversation.Product `json:"products"`
}

type categoriesResponse struct {
	Categories []conversation.CategoryProducts `json:"categories"`
}

// StatusError is a non-2xx reply from the backend
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search backend returned %d: %s", e.Code, e.Body)
}

// SearchProducts returns ranked shopping results for the conversation. A
// non-empty token selects the signed-in endpoint.
func (c *Client) SearchProducts(ctx context.Context, history []HistoryItem, query, token string) ([]conversation.Product, error) {
	path := "/search/public"
	if token != "" {
		path = "/search"
	}
	var resp productsResponse
	if err := c.post(ctx, path, token, searchRequest{History: history, Query: query}, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// ProductsByCategory returns results bucketed by category tag
func (c *Client) ProductsByCategory(ctx context.Context, history []HistoryItem, query, token string) ([]conversation.CategoryProducts, error) {
	var resp categoriesResponse
	if err := c.post(ctx, "/search/categories", token, searchRequest{History: history, Query: query}, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

func (c *Client) post(ctx context.Context, path, token string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(RetryBackoff):
			}
		}
		lastErr = c.do(ctx, path, token, payload, out)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, path, token string, payload []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode search response: %w", err)
	}
	return nil
}

// retryable is true for 5xx replies and transport failures
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !strings.HasPrefix(err.Error(), "failed to decode")
}
