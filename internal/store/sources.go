package store

import (
	"errors"
	"fmt"
	"time"

	"technews/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListSources returns every source with its publishable article count
func (s *Store) ListSources() ([]models.Source, error) {
	sources := make([]models.Source, 0)
	if err := s.db.Preload("Category").Order("name ASC").Find(&sources).Error; err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return sources, nil
	}

	type countResult struct {
		SourceID uint
		Count    int64
	}
	var results []countResult
	err := publishable(s.db.Model(&models.Article{})).
		Select("articles.source_id, COUNT(*) as count").
		Group("articles.source_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(results))
	for _, r := range results {
		counts[r.SourceID] = r.Count
	}
	for i := range sources {
		sources[i].ArticleCount = counts[sources[i].ID]
	}
	return sources, nil
}

// ActiveFeedSources sources the fetch stage should poll
func (s *Store) ActiveFeedSources() ([]models.Source, error) {
	sources := make([]models.Source, 0)
	err := s.db.Where("is_active = ? AND feed_url <> ''", true).Order("id ASC").Find(&sources).Error
	return sources, err
}

// GetSource returns ErrNotFound for an unknown id
func (s *Store) GetSource(id uint) (*models.Source, error) {
	var src models.Source
	if err := s.db.Preload("Category").First(&src, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &src, nil
}

// CreateSource registers a new source. Name and feed URL must both be new.
func (s *Store) CreateSource(src *models.Source) error {
	if src.FeedURL != "" {
		var count int64
		if err := s.db.Model(&models.Source{}).Where("feed_url = ?", src.FeedURL).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateSource
		}
	}
	if err := s.db.Omit("Category").Create(src).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSource
		}
		return fmt.Errorf("create source: %w", err)
	}
	return nil
}

// UpsertSource inserts by name or refreshes the existing row's feed,
// category and description and reactivates it. created reports an insert.
func (s *Store) UpsertSource(src *models.Source) (*models.Source, bool, error) {
	res := s.db.Omit("Category").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(src)
	if res.Error != nil {
		return nil, false, fmt.Errorf("upsert source %s: %w", src.Name, res.Error)
	}
	created := res.RowsAffected > 0

	if !created {
		err := s.db.Model(&models.Source{}).Where("name = ?", src.Name).Updates(map[string]any{
			"url":         src.URL,
			"feed_url":    src.FeedURL,
			"description": src.Description,
			"category_id": src.CategoryID,
			"is_active":   true,
		}).Error
		if err != nil {
			return nil, false, fmt.Errorf("refresh source %s: %w", src.Name, err)
		}
	}

	var stored models.Source
	if err := s.db.Where("name = ?", src.Name).First(&stored).Error; err != nil {
		return nil, false, notFound(err)
	}
	return &stored, created, nil
}

// FindOrCreateSource returns the source named src.Name, inserting src when
// there is none. An existing row is left as it is.
func (s *Store) FindOrCreateSource(src *models.Source) (*models.Source, error) {
	err := s.db.Omit("Category").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(src).Error
	if err != nil {
		return nil, fmt.Errorf("find or create source %s: %w", src.Name, err)
	}

	var stored models.Source
	if err := s.db.Where("name = ?", src.Name).First(&stored).Error; err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

// SetSourceActive toggles the fetch flag and returns the updated row
func (s *Store) SetSourceActive(id uint, active bool) (*models.Source, error) {
	res := s.db.Model(&models.Source{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetSource(id)
}

// DeleteSource removes a source that no article references
func (s *Store) DeleteSource(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Article{}).Where("source_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrSourceInUse
		}
		res := tx.Delete(&models.Source{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// TouchSourceFetched records a completed poll
func (s *Store) TouchSourceFetched(id uint, at time.Time) error {
	return s.db.Model(&models.Source{}).Where("id = ?", id).Update("last_fetch_at", at.UTC()).Error
}
