package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"technews/internal/aitext"
	"technews/internal/config"
	"technews/internal/store"
	"technews/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"
)

const (
	feedCacheKey  = "feed:rss"
	feedCacheTTL  = 5 * time.Minute
	feedItemLimit = 30
	feedDescRunes = 500
)

// FeedHandler syndicates the latest summaries as RSS 2.0
type FeedHandler struct {
	store *store.Store
	cache *utils.TTLCache
	site  config.ServerConfig
}

// NewFeedHandler falls back to the shared cache when cache is nil
func NewFeedHandler(st *store.Store, cache *utils.TTLCache, site config.ServerConfig) *FeedHandler {
	if cache == nil {
		cache = utils.GetCache()
	}
	return &FeedHandler{store: st, cache: cache, site: site}
}

// RSS GET /feed.xml
func (h *FeedHandler) RSS(c *gin.Context) {
	body, ok := h.cache.Get(feedCacheKey).(string)
	if !ok {
		var err error
		body, err = h.render()
		if err != nil {
			abortWithError(c, err)
			return
		}
		h.cache.Set(feedCacheKey, body, feedCacheTTL)
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(body))
}

func (h *FeedHandler) render() (string, error) {
	articles, err := h.store.LatestPublishable(feedItemLimit)
	if err != nil {
		return "", err
	}

	site := strings.TrimRight(h.site.SiteURL, "/")
	feed := &feeds.Feed{
		Title:       h.site.SiteTitle,
		Link:        &feeds.Link{Href: site},
		Description: "Summaries of the latest technology news",
		Created:     time.Now().UTC(),
	}

	feed.Items = make([]*feeds.Item, 0, len(articles))
	for _, a := range articles {
		title := a.Title
		desc := ""
		if a.Summary != nil {
			title = a.Summary.Title
			desc = aitext.Truncate(a.Summary.Content, feedDescRunes)
		}
		item := &feeds.Item{
			Title:       title,
			Link:        &feeds.Link{Href: a.URL},
			Id:          fmt.Sprintf("%s/api/news/%d", site, a.ID),
			Description: desc,
			Created:     a.PublishedAt,
		}
		if a.Source.Name != "" {
			item.Author = &feeds.Author{Name: a.Source.Name}
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to generate RSS: %w", err)
	}
	return rss, nil
}
