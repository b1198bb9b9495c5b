package base

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// ChromeDriverPath is where the chromedriver binary is expected
var ChromeDriverPath = "/usr/local/bin/chromedriver"

const maskWebdriverScript = `
	Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
	window.chrome = {runtime: {}};
`

// FetchDocumentSelenium loads the page through a real ChromeDriver session
func (b *BaseScraper) FetchDocumentSelenium(ctx context.Context, url string) (*goquery.Document, error) {
	pool := DriverPorts()
	port, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Release(port)

	service, err := selenium.NewChromeDriverService(ChromeDriverPath, port)
	if err != nil {
		return nil, fmt.Errorf("error starting Chrome driver service: %w", err)
	}
	defer service.Stop()

	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chrome.Capabilities{
		Args: []string{
			"--headless=new",
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-blink-features=AutomationControlled",
			"--disable-gpu",
			"--window-size=1920,1080",
			"--user-agent=" + UserAgent,
		},
		ExcludeSwitches: []string{"enable-automation"},
	})

	driver, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", port))
	if err != nil {
		return nil, fmt.Errorf("error creating WebDriver: %w", err)
	}
	defer driver.Quit()

	if err := driver.SetPageLoadTimeout(60 * time.Second); err != nil {
		return nil, err
	}
	if err := driver.Get(url); err != nil {
		return nil, fmt.Errorf("navigation error: %w", err)
	}
	if _, err := driver.ExecuteScript(maskWebdriverScript, nil); err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(3 * time.Second):
	}

	html, err := driver.PageSource()
	if err != nil {
		return nil, fmt.Errorf("page source error: %w", err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
