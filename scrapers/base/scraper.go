package base

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/raushankrgupta/style-assistant/utils"
)

// BaseScraper fetches retailer pages, escalating from plain HTTP to a
// headless browser when a page comes back blocked or empty
type BaseScraper struct {
	Client *http.Client

	// UseChromeDP and UseSelenium switch the browser fallbacks on
	UseChromeDP bool
	UseSelenium bool
}

// NewBaseScraper creates a new BaseScraper instance with every strategy on
func NewBaseScraper() *BaseScraper {
	return &BaseScraper{
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				ForceAttemptHTTP2:     false,
				TLSNextProto:          make(map[string]func(string, *tls.Conn) http.RoundTripper),
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		UseChromeDP: true,
		UseSelenium: true,
	}
}

// FetchDocument tries each enabled strategy until validator accepts the page
func (b *BaseScraper) FetchDocument(ctx context.Context, url string, validator func(*goquery.Document) bool) (*goquery.Document, error) {
	type strategy struct {
		name  string
		on    bool
		fetch func(context.Context, string) (*goquery.Document, error)
	}
	strategies := []strategy{
		{"http", true, b.FetchDocumentHTTP},
		{"chromedp", b.UseChromeDP, b.FetchDocumentChromeDP},
		{"selenium", b.UseSelenium, b.FetchDocumentSelenium},
	}

	for _, s := range strategies {
		if !s.on {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.fetch(ctx, url)
		if err != nil {
			utils.Log.Debugw("Scrape strategy failed", "strategy", s.name, "url", url, "error", err)
			continue
		}
		if isValidDocument(doc) && validator(doc) {
			utils.Log.Debugw("Scrape strategy succeeded", "strategy", s.name, "url", url)
			return doc, nil
		}
		utils.Log.Debugw("Scrape strategy yielded unusable page", "strategy", s.name, "url", url)
	}

	return nil, fmt.Errorf("all strategies failed for %s", url)
}

func isValidDocument(doc *goquery.Document) bool {
	lowerTitle := strings.ToLower(strings.TrimSpace(doc.Find("title").Text()))
	for _, blocked := range []string{"robot check", "captcha", "access denied"} {
		if strings.Contains(lowerTitle, blocked) {
			return false
		}
	}
	return doc.Find("body").Length() > 0
}

// FetchDocumentHTTP fetches the URL and returns a GoQuery document via standard HTTP
func (b *BaseScraper) FetchDocumentHTTP(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	// Common headers to mimic a real browser
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")

	res, err := b.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code error: %d %s", res.StatusCode, res.Status)
	}

	return goquery.NewDocumentFromReader(res.Body)
}

// UserAgent is sent by every strategy
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
