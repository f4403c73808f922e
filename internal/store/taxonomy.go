package store

import (
	"fmt"

	"technews/internal/models"

	"gorm.io/gorm/clause"
)

// UpsertCategory inserts by name when missing and returns the stored row
func (s *Store) UpsertCategory(c *models.Category) (*models.Category, error) {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(c).Error
	if err != nil {
		return nil, fmt.Errorf("upsert category %s: %w", c.Name, err)
	}

	var stored models.Category
	if err := s.db.Where("name = ?", c.Name).First(&stored).Error; err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

// UpsertTag get-or-create by name; concurrent callers end with the same row
func (s *Store) UpsertTag(name, description string) (*models.Tag, error) {
	tag := models.Tag{Name: name, Description: description}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&tag).Error
	if err != nil {
		return nil, fmt.Errorf("upsert tag %s: %w", name, err)
	}
	return s.FindTagByName(name)
}

// FindTagByName exact match, ErrNotFound when absent
func (s *Store) FindTagByName(name string) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.Where("name = ?", name).First(&tag).Error; err != nil {
		return nil, notFound(err)
	}
	return &tag, nil
}

// ListCategories with publishable article counts
func (s *Store) ListCategories() ([]models.Category, error) {
	categories := make([]models.Category, 0)
	if err := s.db.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}

	type countResult struct {
		CategoryID uint
		Count      int64
	}
	var results []countResult
	err := publishable(s.db.Model(&models.Article{})).
		Select("articles.category_id, COUNT(*) as count").
		Where("articles.category_id IS NOT NULL").
		Group("articles.category_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(results))
	for _, r := range results {
		counts[r.CategoryID] = r.Count
	}
	for i := range categories {
		categories[i].ArticleCount = counts[categories[i].ID]
	}
	return categories, nil
}

// ListTags with publishable article counts, most used first
func (s *Store) ListTags(limit int) ([]models.Tag, error) {
	type tagRow struct {
		models.Tag
		Count int64
	}
	var rows []tagRow
	query := s.db.Table("tags").
		Select("tags.*, COUNT(articles.id) as count").
		Joins("LEFT JOIN article_tags ON article_tags.tag_id = tags.id").
		Joins(`LEFT JOIN articles ON articles.id = article_tags.article_id AND articles.is_processed = ?
			AND EXISTS (SELECT 1 FROM summaries WHERE summaries.article_id = articles.id)`, true).
		Group("tags.id").
		Order("count DESC, tags.name ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	tags := make([]models.Tag, 0, len(rows))
	for _, r := range rows {
		t := r.Tag
		t.ArticleCount = r.Count
		tags = append(tags, t)
	}
	return tags, nil
}
