// Package scraper fetches page text for evidence URLs whose search snippets
// are too thin to reason over.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type Scraper struct {
	client *http.Client
}

func NewScraper() *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Scrape fetches the URL and extracts text content. Static HTML is parsed
// directly; JS-rendered sites fall back to the Jina Reader proxy.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (string, error) {
	log.Printf("[Scraper] Fetching URL: %s", pageURL)

	content, err := s.directScrape(ctx, pageURL)
	if err == nil && len(content) > 100 {
		return content, nil
	}
	log.Printf("[Scraper] Direct scrape failed or insufficient content, trying Jina Reader...")

	content, err = s.jinaReaderScrape(ctx, pageURL)
	if err == nil && len(content) > 100 {
		return content, nil
	}
	return "", fmt.Errorf("all scraping methods failed")
}

// directScrape uses goquery to extract content from static HTML.
func (s *Scraper) directScrape(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	// Browser-like headers to avoid trivial 403 blocks
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, nav, header, footer, iframe, noscript").Remove()

	var parts []string
	doc.Find("article, main, p, h1, h2, h3, li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) > 40 {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n"), nil
}

// jinaReaderScrape proxies through r.jina.ai, which renders JS-heavy pages
// into plain text.
func (s *Scraper) jinaReaderScrape(ctx context.Context, pageURL string) (string, error) {
	readerURL := "https://r.jina.ai/" + url.QueryEscape(pageURL)
	req, err := http.NewRequestWithContext(ctx, "GET", readerURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}
