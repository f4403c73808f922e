package store

import (
	"errors"
	"fmt"
	"strings"

	"technews/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ArticleFilter reader side list options
type ArticleFilter struct {
	Category string
	Tag      string
	Search   string
	Featured bool
	Page     int
	Limit    int
}

// CreateArticle inserts a new article. A URL that is already stored yields
// ErrDuplicateURL and leaves the existing row untouched.
func (s *Store) CreateArticle(a *models.Article) error {
	if err := s.db.Omit("Source", "Category", "Summary", "Tags", "Insights").Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateURL
		}
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

// ArticleExistsByURL reports whether url is already stored
func (s *Store) ArticleExistsByURL(url string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Article{}).Where("url = ?", url).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetArticle loads an article regardless of its processing state
func (s *Store) GetArticle(id uint) (*models.Article, error) {
	var a models.Article
	err := s.db.Preload("Source").Preload("Category").Preload("Summary").Preload("Tags").
		First(&a, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// CountArticles all stored articles, processed or not
func (s *Store) CountArticles() (int64, error) {
	var total int64
	err := s.db.Model(&models.Article{}).Count(&total).Error
	return total, err
}

// ListPublishable returns one page of summarized articles, newest first,
// together with the total number of matches
func (s *Store) ListPublishable(f ArticleFilter) ([]models.Article, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}

	filtered := func() *gorm.DB {
		query := publishable(s.db.Model(&models.Article{}))
		if f.Category != "" {
			query = query.Where("articles.category_id IN (SELECT id FROM categories WHERE name = ?)", f.Category)
		}
		if f.Tag != "" {
			query = query.Where(`EXISTS (SELECT 1 FROM article_tags
				JOIN tags ON tags.id = article_tags.tag_id
				WHERE article_tags.article_id = articles.id AND tags.name = ?)`, f.Tag)
		}
		if f.Search != "" {
			like := "%" + strings.ToLower(f.Search) + "%"
			query = query.Where("(LOWER(articles.title) LIKE ? OR LOWER(articles.content) LIKE ?)", like, like)
		}
		if f.Featured {
			query = query.Where("articles.is_featured = ?", true)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	articles := make([]models.Article, 0)
	err := filtered().Preload("Source").Preload("Category").Preload("Summary").Preload("Tags").
		Order("articles.published_at DESC").
		Limit(f.Limit).
		Offset(pageOffset(f.Page, f.Limit)).
		Find(&articles).Error
	return articles, total, err
}

// GetPublishable loads a reader visible article and counts the view
func (s *Store) GetPublishable(id uint) (*models.Article, error) {
	var a models.Article
	err := publishable(s.db.Model(&models.Article{})).
		Preload("Source").Preload("Category").Preload("Summary").Preload("Tags").Preload("Insights").
		Where("articles.id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}

	err = s.db.Model(&models.Article{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
	if err != nil {
		// the article is still served, only the counter is stale
		log.Warn().Err(err).Uint("article_id", id).Msg("failed to count article view")
		return &a, nil
	}
	a.Views++
	return &a, nil
}

// LatestPublishable newest summarized articles for syndication
func (s *Store) LatestPublishable(limit int) ([]models.Article, error) {
	articles, _, err := s.ListPublishable(ArticleFilter{Limit: limit})
	return articles, err
}
