package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"technews/internal/feedparser"

	readability "github.com/go-shiori/go-readability"
)

// maxPageBytes caps how much of a page is read for extraction
const maxPageBytes = 5 << 20

// CrawlerService fetches an article page and reduces it to plain text
type CrawlerService struct {
	client    *http.Client
	userAgent string
}

// NewCrawlerService identifies itself with userAgent and gives up after timeout
func NewCrawlerService(userAgent string, timeout time.Duration) *CrawlerService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CrawlerService{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// FetchArticleText extracts the readable body of pageURL with go-readability
func (s *CrawlerService) FetchArticleText(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), parsed)
	if err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}

	return feedparser.StripHTML(article.Content), nil
}

// FetchWithFallback returns "" instead of an error
func (s *CrawlerService) FetchWithFallback(ctx context.Context, pageURL string) string {
	text, err := s.FetchArticleText(ctx, pageURL)
	if err != nil {
		return ""
	}
	return text
}
