package scrapers

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raushankrgupta/style-assistant/models"
	"github.com/raushankrgupta/style-assistant/scrapers/base"
)

// Retailer lists the CSS selectors for one storefront. Each field is tried
// in order and the first non-empty match wins.
type Retailer struct {
	Name        string
	Hosts       []string
	Title       []string
	Brand       []string
	Price       []string
	MRP         []string
	Discount    []string
	Description []string
	// Images are img selectors; ImageAttrs are read in order from each match
	Images     []string
	ImageAttrs []string
}

// Retailers is the selector table for supported stores
var Retailers = []Retailer{
	{
		Name:  "amazon",
		Hosts: []string{"amazon.", "amzn."},
		Title: []string{"#productTitle"},
		Brand: []string{"#bylineInfo"},
		Price: []string{
			".priceToPay .a-offscreen",
			"#corePriceDisplay_desktop_feature_div .a-price.apexPriceToPay .a-offscreen",
			"#priceblock_dealprice",
			"#priceblock_ourprice",
			".a-price .a-offscreen",
		},
		MRP:         []string{".basisPrice .a-offscreen", "span[data-a-strike='true'] .a-offscreen"},
		Discount:    []string{".savingsPercentage"},
		Description: []string{"#feature-bullets", "#productDescription"},
		Images:      []string{"#altImages ul li.item img", "#landingImage", "#imgBlkFront"},
		ImageAttrs:  []string{"data-old-hires", "src"},
	},
	{
		Name:        "flipkart",
		Hosts:       []string{"flipkart.com"},
		Title:       []string{".B_NuCI", "h1.yhB1nd span", "h1"},
		Brand:       []string{".G6XhRU", ".mEh187"},
		Price:       []string{"div._30jeq3._16Jk6d", "div.Nx9bqj.CxhGGd"},
		MRP:         []string{"div._3I9_wc._2p6lqe", "div.yRaY8j.A6ZONS"},
		Discount:    []string{"div._3Ay6Sb._31Dcoz span", "div.UkUFwK.WW8yVX span"},
		Description: []string{"div._1mXcCf", "div.yN5-Ad"},
		Images:      []string{"ul._3GnUWp li._20Gt85 img", "img._396cs4"},
		ImageAttrs:  []string{"src"},
	},
	{
		Name:        "tatacliq",
		Hosts:       []string{"tatacliq.com"},
		Title:       []string{"h1.ProductDescriptionPage__productName", ".ProductDetailsMainCard__productName"},
		Brand:       []string{".ProductDescriptionPage__brandName", ".ProductDetailsMainCard__brandName"},
		Price:       []string{".ProductDescriptionPage__price", ".ProductDetailsMainCard__price"},
		MRP:         []string{".ProductDescriptionPage__mrp", ".ProductDetailsMainCard__mrp"},
		Discount:    []string{".ProductDescriptionPage__discount"},
		Description: []string{".ProductDescriptionPage__productDescription", ".ProductDetailsMainCard__description"},
		Images:      []string{"img.ImageGallery__image"},
		ImageAttrs:  []string{"src"},
	},
	{
		Name:        "peterengland",
		Hosts:       []string{"peterengland"},
		Title:       []string{"h1.pdp-title", ".ProductDetails__productName"},
		Price:       []string{".pdp-price strong", ".ProductDetails__price"},
		MRP:         []string{".pdp-mrp del"},
		Description: []string{".pdp-desc"},
		Images:      []string{".Start-image-gallery img", ".slick-track img"},
		ImageAttrs:  []string{"src"},
	},
}

// SelectorScraper scrapes a store described by a Retailer entry
type SelectorScraper struct {
	*base.BaseScraper
	Retailer Retailer
}

func (s *SelectorScraper) CanScrape(url string) bool {
	for _, h := range s.Retailer.Hosts {
		if strings.Contains(url, h) {
			return true
		}
	}
	return false
}

func (s *SelectorScraper) ScrapeProduct(ctx context.Context, url string) (*models.ScrapedProduct, error) {
	r := s.Retailer
	doc, err := s.FetchDocument(ctx, url, func(doc *goquery.Document) bool {
		return firstText(doc, r.Title) != ""
	})
	if err != nil {
		return nil, err
	}

	product := &models.ScrapedProduct{
		Title:           firstText(doc, r.Title),
		Brand:           firstText(doc, r.Brand),
		DiscountedPrice: firstText(doc, r.Price),
		MRP:             firstText(doc, r.MRP),
		Discount:        firstText(doc, r.Discount),
		Description:     firstText(doc, r.Description),
		Images:          images(doc, r.Images, r.ImageAttrs),
		URL:             url,
		Retailer:        r.Name,
	}
	fillFromMeta(doc, product)

	if product.Title == "" {
		return nil, fmt.Errorf("%s: product title not found", r.Name)
	}
	return product, nil
}

// MetaScraper reads Open Graph tags from any product page
type MetaScraper struct {
	*base.BaseScraper
}

func (s *MetaScraper) CanScrape(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (s *MetaScraper) ScrapeProduct(ctx context.Context, url string) (*models.ScrapedProduct, error) {
	doc, err := s.FetchDocument(ctx, url, func(doc *goquery.Document) bool {
		return meta(doc, "og:title") != "" || meta(doc, "og:image") != ""
	})
	if err != nil {
		return nil, err
	}
	product := &models.ScrapedProduct{URL: url, Retailer: meta(doc, "og:site_name")}
	fillFromMeta(doc, product)
	if product.Title == "" {
		return nil, fmt.Errorf("no product metadata found")
	}
	return product, nil
}

// fillFromMeta completes blank fields from Open Graph and product meta tags
func fillFromMeta(doc *goquery.Document, p *models.ScrapedProduct) {
	if p.Title == "" {
		p.Title = meta(doc, "og:title")
	}
	if p.Description == "" {
		p.Description = meta(doc, "og:description")
	}
	if p.DiscountedPrice == "" {
		if amount := meta(doc, "product:price:amount"); amount != "" {
			p.DiscountedPrice = strings.TrimSpace(meta(doc, "product:price:currency") + " " + amount)
		}
	}
	if p.Brand == "" {
		p.Brand = meta(doc, "product:brand")
	}
	if len(p.Images) == 0 {
		if img := meta(doc, "og:image"); img != "" {
			p.Images = []string{img}
		}
	}
}

func meta(doc *goquery.Document, property string) string {
	sel := fmt.Sprintf("meta[property='%s'], meta[name='%s']", property, property)
	return strings.TrimSpace(doc.Find(sel).First().AttrOr("content", ""))
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.Join(strings.Fields(doc.Find(sel).First().Text()), " "); text != "" {
			return text
		}
	}
	return ""
}

func images(doc *goquery.Document, selectors, attrs []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, sel := range selectors {
		doc.Find(sel).Each(func(i int, s *goquery.Selection) {
			for _, attr := range attrs {
				src := strings.TrimSpace(s.AttrOr(attr, ""))
				if src == "" || strings.HasPrefix(src, "data:") {
					continue
				}
				if !seen[src] {
					seen[src] = true
					out = append(out, src)
				}
				return
			}
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}
