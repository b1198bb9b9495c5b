package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/raushankrgupta/style-assistant/scrapers"
	"github.com/raushankrgupta/style-assistant/utils"
)

// scrape prints the product card a pasted link would produce in chat
func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "per-URL timeout")
	flag.Parse()
	utils.InitLogger("development")
	defer utils.Log.Sync()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: scrape [-timeout 2m] <product-url>...")
		os.Exit(2)
	}

	failed := 0
	for _, u := range flag.Args() {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		scraper, resolved, err := scrapers.GetScraper(ctx, u)
		if err != nil {
			utils.Log.Errorw("No scraper", "url", u, "error", err)
			cancel()
			failed++
			continue
		}
		utils.Log.Infow("Scraping", "url", resolved, "scraper", fmt.Sprintf("%T", scraper))

		product, err := scraper.ScrapeProduct(ctx, resolved)
		cancel()
		if err != nil {
			utils.Log.Errorw("Failed to scrape product", "url", resolved, "error", err)
			failed++
			continue
		}

		b, _ := json.MarshalIndent(product.ToConversationProduct("preview"), "", "  ")
		fmt.Println(string(b))
	}
	if failed > 0 {
		os.Exit(1)
	}
}
