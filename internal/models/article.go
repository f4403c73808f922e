package models

import (
	"time"
)

// Article central entity, one per canonical URL
type Article struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Content     string    `gorm:"type:text" json:"content"`
	URL         string    `gorm:"uniqueIndex;not null" json:"url"`
	ImageURL    *string   `json:"imageUrl"`
	PublishedAt time.Time `gorm:"not null;index" json:"publishedAt"`
	Language    string    `gorm:"size:8;default:'en'" json:"language"`
	IsProcessed bool      `gorm:"not null;default:false;index" json:"isProcessed"`
	Views       int       `gorm:"default:0" json:"views"`
	IsFeatured  bool      `gorm:"default:false" json:"isFeatured"`
	SourceID    uint      `gorm:"not null;index" json:"sourceId"`
	Source      Source    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"source"`
	CategoryID  *uint     `gorm:"index" json:"categoryId"`
	Category    *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	Summary     *Summary  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"summary,omitempty"`
	Tags        []Tag     `gorm:"many2many:article_tags;" json:"tags,omitempty"`
	Insights    []Insight `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"insights,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Publishable reports whether the article may appear in reader views
func (a *Article) Publishable() bool {
	return a.IsProcessed && a.Summary != nil
}

// TagNames returns the names of the loaded tags
func (a *Article) TagNames() []string {
	names := make([]string, 0, len(a.Tags))
	for _, t := range a.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Summary generated digest, one per article
type Summary struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ArticleID  uint      `gorm:"uniqueIndex;not null" json:"articleId"`
	Title      string    `gorm:"not null" json:"title"`
	Content    string    `gorm:"type:text" json:"content"`
	KeyPoints  string    `gorm:"type:text" json:"keyPoints"` // JSON blob of the parsed sections
	Language   string    `gorm:"size:8" json:"language"`
	Confidence float64   `json:"confidence"`
	WordCount  int       `json:"wordCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Tag reusable label
type Tag struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`

	ArticleCount int64 `gorm:"-" json:"articleCount"`
}

// ArticleTag join row for Article.Tags
type ArticleTag struct {
	ArticleID uint `gorm:"primaryKey"`
	TagID     uint `gorm:"primaryKey"`
}

// Insight types
const (
	InsightTrend       = "trend"
	InsightImpact      = "impact"
	InsightOpportunity = "opportunity"
	InsightRisk        = "risk"
)

// InsightTypes fixed generation order
var InsightTypes = []string{InsightTrend, InsightImpact, InsightOpportunity, InsightRisk}

// Insight typed analysis record
type Insight struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ArticleID  uint      `gorm:"not null;index" json:"articleId"`
	Type       string    `gorm:"size:16;not null;index" json:"type"`
	Title      string    `json:"title"`
	Content    string    `gorm:"type:text" json:"content"`
	Confidence float64   `json:"confidence"`
	Metadata   string    `gorm:"type:text" json:"metadata"` // JSON: recommendations, audience, horizon
	CreatedAt  time.Time `json:"createdAt"`
}
