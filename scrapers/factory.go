package scrapers

import (
	"context"
	"fmt"

	"github.com/raushankrgupta/style-assistant/models"
	"github.com/raushankrgupta/style-assistant/scrapers/base"
	"github.com/raushankrgupta/style-assistant/scrapers/myntra"
	"github.com/raushankrgupta/style-assistant/utils"
)

// Registry returns the retailer scrapers in match order. The page-meta
// fallback is last and accepts any URL.
func Registry(b *base.BaseScraper) []Scraper {
	scrapers := make([]Scraper, 0, len(Retailers)+2)
	for _, r := range Retailers {
		scrapers = append(scrapers, &SelectorScraper{BaseScraper: b, Retailer: r})
	}
	scrapers = append(scrapers, myntra.NewMyntraScraper(b))
	scrapers = append(scrapers, &MetaScraper{BaseScraper: b})
	return scrapers
}

// GetScraper returns the appropriate scraper and the resolved URL
func GetScraper(ctx context.Context, url string) (Scraper, string, error) {
	// Resolve shortened URLs (e.g., amzn.in, bit.ly)
	resolvedURL, err := utils.ResolveShortenedURL(ctx, url)
	if err != nil {
		return nil, url, fmt.Errorf("error resolving url: %w", err)
	}

	for _, s := range Registry(base.NewBaseScraper()) {
		if s.CanScrape(resolvedURL) {
			return s, resolvedURL, nil
		}
	}

	return nil, resolvedURL, fmt.Errorf("no scraper found for url: %s", resolvedURL)
}

// Scrape resolves url, picks a scraper and returns the product
func Scrape(ctx context.Context, url string) (*models.ScrapedProduct, error) {
	s, resolvedURL, err := GetScraper(ctx, url)
	if err != nil {
		return nil, err
	}
	product, err := s.ScrapeProduct(ctx, resolvedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape %s: %w", resolvedURL, err)
	}
	if product.URL == "" {
		product.URL = resolvedURL
	}
	return product, nil
}
