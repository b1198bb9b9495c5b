package utils

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

var socialHosts = []string{
	"instagram.com", "instagr.am", "tiktok.com", "pinterest.com", "pin.it",
	"facebook.com", "fb.watch", "x.com", "twitter.com", "youtube.com", "youtu.be",
}

var resolveClient = &http.Client{Timeout: 15 * time.Second}

// ExtractURL returns the first http(s) link in a chat message
func ExtractURL(text string) string {
	return strings.TrimRight(urlPattern.FindString(text), ".,)")
}

// IsSocialMediaURL reports links to the social platforms we pull images from
func IsSocialMediaURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, h := range socialHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// ResolveShortenedURL follows redirects to find the final URL
func ResolveShortenedURL(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return rawURL, err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := resolveClient.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		if resp != nil {
			resp.Body.Close()
		}
		// some servers block HEAD, try GET
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return rawURL, err
		}
		req.Header.Set("User-Agent", browserUserAgent)

		resp, err = resolveClient.Do(req)
		if err != nil {
			return rawURL, err
		}
	}
	defer resp.Body.Close()

	return resp.Request.URL.String(), nil
}

// FetchPreviewImages returns the og:image / twitter:image URLs of a page
func FetchPreviewImages(ctx context.Context, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := resolveClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var images []string
	doc.Find(`meta[property="og:image"], meta[name="twitter:image"], meta[property="og:image:secure_url"]`).Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content != "" && !seen[content] {
			seen[content] = true
			images = append(images, content)
		}
	})
	return images, nil
}
