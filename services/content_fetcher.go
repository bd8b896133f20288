package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"
	"github.com/communityhq/opportunity-board/config"
	"github.com/communityhq/opportunity-board/shared"
	"github.com/sirupsen/logrus"
)

const fetcherUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// PageContentFetcher retrieves the rendered text of a single page. The
// primary path is a static fetch; when a page's static HTML carries almost
// no text and the headless renderer is enabled, the page is re-fetched with
// JavaScript executed.
type PageContentFetcher struct {
	config      *config.FetcherConfig
	rateLimiter *shared.HTTPRequestRateLimiter
	logger      *logrus.Entry
}

// NewPageContentFetcher creates a fetcher with the given configuration
func NewPageContentFetcher(cfg *config.FetcherConfig) *PageContentFetcher {
	if cfg == nil {
		cfg = config.DefaultFetcherConfig()
	}

	return &PageContentFetcher{
		config:      cfg,
		rateLimiter: shared.NewHTTPRequestRateLimiter(cfg.PolitenessDelay),
		logger:      logrus.WithField("component", "PageContentFetcher"),
	}
}

// Fetch retrieves the page at url and returns its visible text content.
func (f *PageContentFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.rateLimiter.EnforceRateLimit()

	html, err := f.fetchStatic(ctx, url)
	if err != nil {
		return "", shared.UpstreamError("fetch_content", fmt.Sprintf("failed to fetch %s", url), err)
	}

	text, err := extractVisibleText(html)
	if err != nil {
		return "", shared.UpstreamError("fetch_content", fmt.Sprintf("failed to parse content of %s", url), err)
	}

	if utf8.RuneCountInString(text) < f.config.MinTextRunes && f.config.EnableRenderer {
		f.logger.WithFields(logrus.Fields{
			"url":        url,
			"text_runes": utf8.RuneCountInString(text),
		}).Debug("Static fetch yielded little text, falling back to headless renderer")

		renderedHTML, renderErr := f.fetchRendered(ctx, url)
		if renderErr != nil {
			// The static result stands; the renderer is best-effort.
			shared.ReportException("fetch_content_rendered", renderErr)
			return text, nil
		}

		renderedText, parseErr := extractVisibleText(renderedHTML)
		if parseErr == nil && utf8.RuneCountInString(renderedText) > utf8.RuneCountInString(text) {
			return renderedText, nil
		}
	}

	return text, nil
}

// fetchStatic retrieves the raw HTML of a page without executing JavaScript.
func (f *PageContentFetcher) fetchStatic(ctx context.Context, url string) ([]byte, error) {
	collector := colly.NewCollector(
		colly.UserAgent(fetcherUserAgent),
		colly.MaxDepth(1),
		colly.IgnoreRobotsTxt(),
	)
	collector.SetRequestTimeout(f.config.RequestTimeout)

	var body []byte
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	if err := collector.Visit(url); err != nil {
		return nil, err
	}
	collector.Wait()

	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body from %s", url)
	}

	return body, nil
}

// fetchRendered retrieves page HTML through a headless browser so
// JavaScript-rendered job boards still produce readable text.
func (f *PageContentFetcher) fetchRendered(ctx context.Context, url string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-images", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(fetcherUserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, f.config.RequestTimeout)
	defer cancelTimeout()

	var renderedHTML string
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(url),
		chromedp.Sleep(2*time.Second), // Let dynamic content settle
		chromedp.OuterHTML("html", &renderedHTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("headless render of %s failed: %w", url, err)
	}

	return []byte(renderedHTML), nil
}

// extractVisibleText strips non-content elements from an HTML document and
// returns its whitespace-collapsed visible text.
func extractVisibleText(html []byte) (string, error) {
	document, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", err
	}

	document.Find("script, style, noscript, svg, iframe").Remove()

	text := document.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		// Pages without a body tag still may carry text at the root.
		text = document.Text()
	}

	return collapseWhitespace(text), nil
}

// collapseWhitespace normalizes runs of whitespace to single spaces.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
