package models

import (
	"time"
)

// Source feed origin
type Source struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"uniqueIndex;not null" json:"name"`
	URL         string     `gorm:"not null" json:"url"` // home page
	FeedURL     string     `gorm:"index" json:"rssUrl"`
	Description string     `gorm:"type:text" json:"description"`
	IsActive    bool       `gorm:"not null;default:true" json:"isActive"`
	CategoryID  *uint      `gorm:"index" json:"categoryId,omitempty"` // default category for fetched articles
	Category    *Category  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	LastFetchAt *time.Time `json:"lastFetchAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// filled by list queries
	ArticleCount int64 `gorm:"-" json:"articleCount"`
}

// Category single-valued classification label
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	ArticleCount int64 `gorm:"-" json:"articleCount"`
}
