package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"technews/internal/config"
	"technews/internal/feedparser"
	"technews/internal/models"
	"technews/internal/store"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
)

// maxFeedBytes caps a single feed download
const maxFeedBytes = 10 << 20

// FetchResult outcome of one fetch stage run
type FetchResult struct {
	Fetched       int `json:"fetched"`
	Sources       int `json:"sources"`
	FailedSources int `json:"failedSources"`
}

// Fetcher polls active sources and stores new articles
type Fetcher struct {
	store     *store.Store
	client    *http.Client
	parser    *feedparser.Parser
	crawler   *CrawlerService
	userAgent string
	enrich    bool
	now       func() time.Time
}

func newFeedClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
	}
}

// NewFetcher downloads with the configured user agent and timeout
func NewFetcher(st *store.Store, cfg config.PipelineConfig) *Fetcher {
	return &Fetcher{
		store:     st,
		client:    newFeedClient(cfg.FetchTimeout),
		parser:    feedparser.New(),
		crawler:   NewCrawlerService(cfg.UserAgent, cfg.FetchTimeout),
		userAgent: cfg.UserAgent,
		enrich:    cfg.EnrichContent,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// FetchAll polls every active source in turn. A failing source is logged
// and skipped; only a failure to list sources fails the run.
func (f *Fetcher) FetchAll(ctx context.Context) (*FetchResult, error) {
	sources, err := f.store.ActiveFeedSources()
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	result := &FetchResult{Sources: len(sources)}
	for i := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		src := &sources[i]
		n, err := f.FetchSource(ctx, src)
		result.Fetched += n
		if err != nil {
			result.FailedSources++
			log.Warn().Err(err).Str("source", src.Name).Msg("feed fetch failed")
			f.store.AppendLog(models.ActionFetch, models.StatusError,
				fmt.Sprintf("Failed to process RSS feed: %v", err),
				map[string]any{"source": src.Name})
		}
	}

	log.Info().Int("fetched", result.Fetched).Int("sources", result.Sources).
		Int("failed", result.FailedSources).Msg("fetch stage finished")
	return result, nil
}

// FetchSource downloads one feed and stores its unseen items
func (f *Fetcher) FetchSource(ctx context.Context, src *models.Source) (int, error) {
	raw, err := f.download(ctx, src.FeedURL)
	if err != nil {
		return 0, err
	}

	fetched, seen := 0, 0
	for item := range f.parser.Items(raw) {
		seen++
		created, err := f.storeItem(ctx, src, item)
		if err != nil {
			log.Error().Err(err).Str("source", src.Name).Str("url", item.Link).Msg("failed to store article")
			f.store.AppendLog(models.ActionFetch, models.StatusError,
				fmt.Sprintf("Failed to process article: %v", err),
				map[string]any{"source": src.Name, "title": item.Title})
			continue
		}
		if created {
			fetched++
		}
	}
	if seen == 0 {
		log.Info().Str("source", src.Name).Msg("feed contained no items")
	}

	if err := f.store.TouchSourceFetched(src.ID, f.now()); err != nil {
		log.Warn().Err(err).Str("source", src.Name).Msg("failed to update last fetch time")
	}
	return fetched, nil
}

func (f *Fetcher) download(ctx context.Context, feedURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

func (f *Fetcher) storeItem(ctx context.Context, src *models.Source, item feedparser.Item) (bool, error) {
	exists, err := f.store.ArticleExistsByURL(item.Link)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}
	if content == "" && f.enrich {
		content = f.crawler.FetchWithFallback(ctx, item.Link)
	}

	article := &models.Article{
		Title:       item.Title,
		Content:     content,
		URL:         item.Link,
		ImageURL:    item.ImageURL,
		PublishedAt: item.PubDate.UTC(),
		Language:    "en",
		SourceID:    src.ID,
		CategoryID:  src.CategoryID,
	}
	if err := f.store.CreateArticle(article); err != nil {
		// lost a race with another fetch, not an error
		if errors.Is(err, store.ErrDuplicateURL) {
			return false, nil
		}
		return false, err
	}

	f.store.AppendLog(models.ActionFetch, models.StatusSuccess,
		"Fetched article: "+item.Title,
		map[string]any{"source": src.Name, "articleId": article.ID})
	return true, nil
}

// FeedReport result of probing a feed URL
type FeedReport struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Link        string     `json:"link"`
	ItemCount   int        `json:"itemCount"`
	SampleItems []FeedItem `json:"sampleItems"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// FeedItem sample entry of a probed feed
type FeedItem struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// FeedInspector validates feeds with gofeed, which understands RSS, Atom
// and JSON feeds
type FeedInspector struct {
	parser *gofeed.Parser
}

// NewFeedInspector probes feeds with the pipeline fetch timeout
func NewFeedInspector(cfg config.PipelineConfig) *FeedInspector {
	parser := gofeed.NewParser()
	parser.Client = newFeedClient(cfg.FetchTimeout)
	parser.UserAgent = cfg.UserAgent
	return &FeedInspector{parser: parser}
}

// Inspect fetches and parses feedURL
func (fi *FeedInspector) Inspect(ctx context.Context, feedURL string) (*FeedReport, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, ErrMissingURL
	}

	feed, err := fi.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	report := &FeedReport{
		URL:         feedURL,
		Title:       strings.TrimSpace(feed.Title),
		Description: strings.TrimSpace(feed.Description),
		Link:        feed.Link,
		ItemCount:   len(feed.Items),
		SampleItems: make([]FeedItem, 0, 3),
	}
	if feed.UpdatedParsed != nil {
		report.LastUpdated = feed.UpdatedParsed
	} else if feed.PublishedParsed != nil {
		report.LastUpdated = feed.PublishedParsed
	}
	for _, item := range feed.Items {
		if len(report.SampleItems) == 3 {
			break
		}
		report.SampleItems = append(report.SampleItems, FeedItem{Title: item.Title, Link: item.Link})
	}
	return report, nil
}

// FillSource completes missing metadata of a source from its feed
func (fi *FeedInspector) FillSource(ctx context.Context, src *models.Source) (*FeedReport, error) {
	report, err := fi.Inspect(ctx, src.FeedURL)
	if err != nil {
		return nil, err
	}
	if src.Name == "" {
		src.Name = report.Title
	}
	if src.Description == "" {
		src.Description = report.Description
	}
	if src.URL == "" {
		src.URL = report.Link
	}
	if src.URL == "" {
		src.URL = src.FeedURL
	}
	return report, nil
}
