package myntra

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raushankrgupta/style-assistant/models"
	"github.com/raushankrgupta/style-assistant/scrapers/base"
)

const stateMarker = "window.__myx ="

type MyntraScraper struct {
	*base.BaseScraper
}

func NewMyntraScraper(b *base.BaseScraper) *MyntraScraper {
	return &MyntraScraper{BaseScraper: b}
}

func (s *MyntraScraper) CanScrape(url string) bool {
	return strings.Contains(url, "myntra.com")
}

// pageState is the part of the embedded page state we read
type pageState struct {
	PDPData struct {
		Name  string      `json:"name"`
		Title string      `json:"title"`
		MRP   json.Number `json:"mrp"`
		Price json.Number `json:"price"`
		Brand struct {
			Name string `json:"name"`
		} `json:"brand"`
		ProductDetails []struct {
			Description string `json:"description"`
		} `json:"productDetails"`
		Media struct {
			Albums []struct {
				Images []struct {
					Src string `json:"src"`
				} `json:"images"`
			} `json:"albums"`
		} `json:"media"`
	} `json:"pdpData"`
}

func (s *MyntraScraper) ScrapeProduct(ctx context.Context, url string) (*models.ScrapedProduct, error) {
	doc, err := s.FetchDocument(ctx, url, func(doc *goquery.Document) bool {
		return strings.Contains(doc.Text(), "window.__myx") || doc.Find("h1").Length() > 0
	})
	if err != nil {
		return nil, err
	}

	product := &models.ScrapedProduct{URL: url, Retailer: "myntra"}
	if state, ok := extractState(doc); ok {
		fromState(state, product)
	}
	if product.Title == "" {
		fromHTML(doc, product)
	}
	if product.Title == "" {
		return nil, fmt.Errorf("myntra: product title not found")
	}
	return product, nil
}

func extractState(doc *goquery.Document) (*pageState, bool) {
	var raw string
	doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, stateMarker)
		if idx == -1 {
			return true
		}
		raw = strings.TrimSuffix(strings.TrimSpace(text[idx+len(stateMarker):]), ";")
		return false
	})
	if raw == "" {
		return nil, false
	}
	var state pageState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, false
	}
	return &state, true
}

func fromState(state *pageState, p *models.ScrapedProduct) {
	pd := state.PDPData
	p.Title = pd.Name
	if p.Title == "" {
		p.Title = pd.Title
	}
	p.Brand = pd.Brand.Name
	p.MRP = rupees(pd.MRP.String())
	p.DiscountedPrice = rupees(pd.Price.String())
	for _, d := range pd.ProductDetails {
		if d.Description != "" {
			p.Description = d.Description
			break
		}
	}
	for _, album := range pd.Media.Albums {
		for _, img := range album.Images {
			if img.Src != "" {
				p.Images = append(p.Images, img.Src)
			}
		}
	}
}

func fromHTML(doc *goquery.Document, p *models.ScrapedProduct) {
	p.Title = strings.TrimSpace(doc.Find(".pdp-name").Text())
	p.Brand = strings.TrimSpace(doc.Find(".pdp-title").Text())
	p.DiscountedPrice = strings.TrimSpace(doc.Find(".pdp-price").First().Text())
	p.MRP = strings.TrimSpace(doc.Find(".pdp-mrp").First().Text())
	p.Discount = strings.TrimSpace(doc.Find(".pdp-discount").First().Text())
	p.Description = strings.TrimSpace(doc.Find(".pdp-product-description-content").Text())

	doc.Find(".image-grid-image").Each(func(i int, s *goquery.Selection) {
		// background-image: url("...")
		style := s.AttrOr("style", "")
		start := strings.Index(style, "url(")
		if start == -1 {
			return
		}
		start += len("url(")
		end := strings.Index(style[start:], ")")
		if end != -1 {
			p.Images = append(p.Images, strings.Trim(style[start:start+end], "\"'"))
		}
	})
}

func rupees(v string) string {
	if v == "" {
		return ""
	}
	return "Rs. " + v
}
