package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"technews/internal/config"
	"technews/internal/models"
	"technews/internal/store"

	"github.com/rs/zerolog/log"
)

// DefaultCategory assigned to manual articles that name none
const DefaultCategory = "تقنية"

// ArticleInput hand-entered article. Title, content and source are required.
type ArticleInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Source   string `json:"source"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

// Uploader registers articles that did not come from a feed
type Uploader struct {
	store    *store.Store
	language string
	now      func() time.Time
}

// NewUploader manual articles are stored in the configured language
func NewUploader(st *store.Store, cfg config.PipelineConfig) *Uploader {
	return &Uploader{store: st, language: cfg.Language, now: time.Now}
}

// AddArticle stores the article unprocessed so the next summarize batch
// picks it up. Source and category are created by name when missing.
func (u *Uploader) AddArticle(in ArticleInput) (*models.Article, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Source = strings.TrimSpace(in.Source)
	in.URL = strings.TrimSpace(in.URL)
	if in.Title == "" || strings.TrimSpace(in.Content) == "" || in.Source == "" {
		return nil, ErrMissingFields
	}

	article, err := u.add(in)
	if err != nil {
		if !errors.Is(err, store.ErrDuplicateURL) {
			log.Error().Err(err).Str("title", in.Title).Str("action", models.ActionTextUpload).Msg("manual article failed")
			u.store.AppendLog(models.ActionTextUpload, models.StatusError,
				fmt.Sprintf("Failed to create article from text: %v", err),
				map[string]any{"title": in.Title, "source": in.Source})
		}
		return nil, err
	}

	u.store.AppendLog(models.ActionTextUpload, models.StatusSuccess,
		"Created article from text upload: "+in.Title,
		map[string]any{
			"articleId":     article.ID,
			"title":         in.Title,
			"source":        in.Source,
			"category":      article.Category.Name,
			"contentLength": len([]rune(in.Content)),
		})
	return article, nil
}

func (u *Uploader) add(in ArticleInput) (*models.Article, error) {
	if in.URL != "" {
		exists, err := u.store.ArticleExistsByURL(in.URL)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, store.ErrDuplicateURL
		}
	}

	srcURL := in.URL
	if srcURL == "" {
		srcURL = "https://" + strings.ReplaceAll(strings.ToLower(in.Source), " ", "") + ".com"
	}
	src, err := u.store.FindOrCreateSource(&models.Source{
		Name:        in.Source,
		URL:         srcURL,
		Description: "Added manually",
		IsActive:    true,
	})
	if err != nil {
		return nil, err
	}

	categoryName := strings.TrimSpace(in.Category)
	if categoryName == "" {
		categoryName = DefaultCategory
	}
	cat, err := u.store.UpsertCategory(&models.Category{Name: categoryName, Description: "Added manually"})
	if err != nil {
		return nil, err
	}

	now := u.now().UTC()
	articleURL := in.URL
	if articleURL == "" {
		articleURL = fmt.Sprintf("%s/article/%d", strings.TrimRight(src.URL, "/"), now.UnixNano())
	}

	article := &models.Article{
		Title:       in.Title,
		Content:     in.Content,
		URL:         articleURL,
		PublishedAt: now,
		Language:    u.language,
		SourceID:    src.ID,
		CategoryID:  &cat.ID,
	}
	if err := u.store.CreateArticle(article); err != nil {
		return nil, err
	}
	article.Source = *src
	article.Category = cat
	return article, nil
}
