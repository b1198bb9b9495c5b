package scrapers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raushankrgupta/style-assistant/scrapers/base"
	"github.com/raushankrgupta/style-assistant/scrapers/myntra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func httpOnly() *base.BaseScraper {
	b := base.NewBaseScraper()
	b.UseChromeDP = false
	b.UseSelenium = false
	return b
}

func retailer(t *testing.T, name string) Retailer {
	t.Helper()
	for _, r := range Retailers {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("retailer %s not registered", name)
	return Retailer{}
}

func TestSelectorScraperAmazon(t *testing.T) {
	srv := serveHTML(t, `<html><head><title>Linen Shirt</title></head><body>
		<span id="productTitle">  Men's Linen
			Shirt </span>
		<a id="bylineInfo">Visit the Uniqlo Store</a>
		<div class="priceToPay"><span class="a-offscreen">₹1,299</span></div>
		<div class="basisPrice"><span class="a-offscreen">₹1,999</span></div>
		<span class="savingsPercentage">-35%</span>
		<img id="landingImage" data-old-hires="https://img.example/large.jpg" src="https://img.example/small.jpg">
	</body></html>`)

	s := &SelectorScraper{BaseScraper: httpOnly(), Retailer: retailer(t, "amazon")}
	p, err := s.ScrapeProduct(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Men's Linen Shirt", p.Title)
	assert.Equal(t, "₹1,299", p.DiscountedPrice)
	assert.Equal(t, "₹1,999", p.MRP)
	assert.Equal(t, "-35%", p.Discount)
	assert.Equal(t, []string{"https://img.example/large.jpg"}, p.Images)
	assert.Equal(t, "amazon", p.Retailer)
	assert.Equal(t, srv.URL, p.URL)
}

func TestSelectorScraperFallsBackToMeta(t *testing.T) {
	srv := serveHTML(t, `<html><head>
		<meta property="og:image" content="https://img.example/og.jpg">
		<meta property="og:description" content="Slim fit chinos">
	</head><body><h1 class="pdp-title">Chinos</h1><div class="pdp-price"><strong>₹2,499</strong></div></body></html>`)

	s := &SelectorScraper{BaseScraper: httpOnly(), Retailer: retailer(t, "peterengland")}
	p, err := s.ScrapeProduct(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Chinos", p.Title)
	assert.Equal(t, "₹2,499", p.DiscountedPrice)
	assert.Equal(t, "Slim fit chinos", p.Description)
	assert.Equal(t, []string{"https://img.example/og.jpg"}, p.Images)
}

func TestSelectorScraperRejectsBlockedPage(t *testing.T) {
	srv := serveHTML(t, `<html><head><title>Robot Check</title></head><body><span id="productTitle">x</span></body></html>`)

	s := &SelectorScraper{BaseScraper: httpOnly(), Retailer: retailer(t, "amazon")}
	_, err := s.ScrapeProduct(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestMetaScraper(t *testing.T) {
	srv := serveHTML(t, `<html><head>
		<meta property="og:title" content="Canvas Tote">
		<meta property="og:site_name" content="Boutique">
		<meta property="product:price:amount" content="45.00">
		<meta property="product:price:currency" content="USD">
		<meta property="og:image" content="https://img.example/tote.jpg">
	</head><body></body></html>`)

	s := &MetaScraper{BaseScraper: httpOnly()}
	p, err := s.ScrapeProduct(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Canvas Tote", p.Title)
	assert.Equal(t, "Boutique", p.Retailer)
	assert.Equal(t, "USD 45.00", p.DiscountedPrice)
	assert.Equal(t, []string{"https://img.example/tote.jpg"}, p.Images)
}

func TestMyntraScraperReadsPageState(t *testing.T) {
	srv := serveHTML(t, `<html><body><h1>x</h1><script>
		window.__myx = {"pdpData":{"name":"Printed Kurta","mrp":1999,"price":999,
		"brand":{"name":"Anouk"},
		"productDetails":[{"description":"Cotton kurta"}],
		"media":{"albums":[{"images":[{"src":"https://img.example/k1.jpg"},{"src":"https://img.example/k2.jpg"}]}]}}};
	</script></body></html>`)

	s := myntra.NewMyntraScraper(httpOnly())
	p, err := s.ScrapeProduct(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Printed Kurta", p.Title)
	assert.Equal(t, "Anouk", p.Brand)
	assert.Equal(t, "Rs. 999", p.DiscountedPrice)
	assert.Equal(t, "Rs. 1999", p.MRP)
	assert.Equal(t, "Cotton kurta", p.Description)
	assert.Len(t, p.Images, 2)
}

func TestRegistryMatchOrder(t *testing.T) {
	reg := Registry(httpOnly())
	pick := func(url string) Scraper {
		for _, s := range reg {
			if s.CanScrape(url) {
				return s
			}
		}
		return nil
	}

	amazon, ok := pick("https://www.amazon.in/dp/B0TEST").(*SelectorScraper)
	require.True(t, ok)
	assert.Equal(t, "amazon", amazon.Retailer.Name)

	_, ok = pick("https://www.myntra.com/kurtas/123").(*myntra.MyntraScraper)
	assert.True(t, ok)

	_, ok = pick("https://shop.example.com/p/1").(*MetaScraper)
	assert.True(t, ok)

	assert.Nil(t, pick("ftp://files.example.com"))
}
