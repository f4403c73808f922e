package store

import (
	"errors"
	"fmt"

	"technews/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// candidates preloads what the stages need for prompts and skips articles
// that hold a live claim for the stage
func (s *Store) candidates(stage string, limit int, scope func(*gorm.DB) *gorm.DB) ([]models.Article, error) {
	articles := make([]models.Article, 0)
	err := scope(s.db.Model(&models.Article{})).
		Where(`NOT EXISTS (SELECT 1 FROM stage_claims
			WHERE stage_claims.article_id = articles.id AND stage_claims.stage = ? AND stage_claims.claimed_at > ?)`,
			stage, s.now().Add(-s.claimTTL)).
		Preload("Source").Preload("Category").Preload("Summary").Preload("Tags").
		Order("articles.id ASC").
		Limit(limit).
		Find(&articles).Error
	return articles, err
}

// ArticlesNeedingSummary unprocessed articles without a summary
func (s *Store) ArticlesNeedingSummary(limit int) ([]models.Article, error) {
	return s.candidates(models.ActionSummarize, limit, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("articles.is_processed = ?", false).
			Where("NOT EXISTS (SELECT 1 FROM summaries WHERE summaries.article_id = articles.id)")
	})
}

// ArticlesNeedingTags processed articles with no tag association
func (s *Store) ArticlesNeedingTags(limit int) ([]models.Article, error) {
	return s.candidates(models.ActionTag, limit, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("articles.is_processed = ?", true).
			Where("NOT EXISTS (SELECT 1 FROM article_tags WHERE article_tags.article_id = articles.id)")
	})
}

// ArticlesNeedingInsights summarized articles without insights
func (s *Store) ArticlesNeedingInsights(limit int) ([]models.Article, error) {
	return s.candidates(models.ActionInsights, limit, func(tx *gorm.DB) *gorm.DB {
		return publishable(tx).
			Where("NOT EXISTS (SELECT 1 FROM insights WHERE insights.article_id = articles.id)")
	})
}

// Claim marks the article as in progress for stage and returns the token
// needed to release it. A fresh claim held by someone else yields ErrClaimed;
// one older than the claim TTL is taken over.
func (s *Store) Claim(articleID uint, stage string) (string, error) {
	now := s.now()
	claim := models.StageClaim{
		ArticleID: articleID,
		Stage:     stage,
		Token:     uuid.NewString(),
		ClaimedAt: now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ? AND stage = ? AND claimed_at <= ?", articleID, stage, now.Add(-s.claimTTL)).
			Delete(&models.StageClaim{}).Error; err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&claim)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrClaimed
		}
		return nil
	})
	switch {
	case err == nil:
		return claim.Token, nil
	case errors.Is(err, ErrClaimed), errors.Is(err, gorm.ErrDuplicatedKey):
		return "", ErrClaimed
	default:
		return "", fmt.Errorf("claim article %d for %s: %w", articleID, stage, err)
	}
}

// Release drops a claim; a token that no longer matches is ignored
func (s *Store) Release(articleID uint, stage, token string) error {
	return s.db.Where("article_id = ? AND stage = ? AND token = ?", articleID, stage, token).
		Delete(&models.StageClaim{}).Error
}

// SaveSummary stores the summary and flags the article processed in one
// transaction. A second summary for the same article fails with
// ErrSummaryExists.
func (s *Store) SaveSummary(sum *models.Summary) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sum).Error; err != nil {
			return err
		}
		return tx.Model(&models.Article{}).Where("id = ?", sum.ArticleID).
			Update("is_processed", true).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSummaryExists
	}
	return err
}

// MarkProcessed flags an article whose summary already exists
func (s *Store) MarkProcessed(articleID uint) error {
	return s.db.Model(&models.Article{}).Where("id = ?", articleID).
		Update("is_processed", true).Error
}

// GetSummary returns ErrNotFound when the article has none
func (s *Store) GetSummary(articleID uint) (*models.Summary, error) {
	var sum models.Summary
	if err := s.db.Where("article_id = ?", articleID).First(&sum).Error; err != nil {
		return nil, notFound(err)
	}
	return &sum, nil
}

// ReplaceArticleTags swaps the article's tag set atomically
func (s *Store) ReplaceArticleTags(articleID uint, tagIDs []uint) error {
	rows := make([]models.ArticleTag, 0, len(tagIDs))
	seen := make(map[uint]bool, len(tagIDs))
	for _, id := range tagIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, models.ArticleTag{ArticleID: articleID, TagID: id})
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", articleID).Delete(&models.ArticleTag{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// HasTags reports whether any tag is attached to the article
func (s *Store) HasTags(articleID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.ArticleTag{}).Where("article_id = ?", articleID).Count(&count).Error
	return count > 0, err
}

// SaveInsights writes all rows or none
func (s *Store) SaveInsights(insights []models.Insight) error {
	if len(insights) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&insights).Error
	})
}

// HasInsights reports whether insights were stored for the article
func (s *Store) HasInsights(articleID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.Insight{}).Where("article_id = ?", articleID).Count(&count).Error
	return count > 0, err
}

// ListInsights in insertion order
func (s *Store) ListInsights(articleID uint) ([]models.Insight, error) {
	insights := make([]models.Insight, 0)
	err := s.db.Where("article_id = ?", articleID).Order("id ASC").Find(&insights).Error
	return insights, err
}
