// Package store is the content store: every read and write of sources,
// articles, summaries, tags, insights and processing logs goes through it.
package store

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateURL    = errors.New("article URL already stored")
	ErrDuplicateSource = errors.New("source name or feed URL already registered")
	ErrSummaryExists   = errors.New("article already has a summary")
	ErrSourceInUse     = errors.New("source still has articles")
	ErrClaimed         = errors.New("article is being processed by another run")
)

// DefaultClaimTTL age after which an unreleased claim may be taken over
const DefaultClaimTTL = 15 * time.Minute

// Store persistence for articles, sources, taxonomy, logs and stage claims
type Store struct {
	db       *gorm.DB
	claimTTL time.Duration
	now      func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClaimTTL overrides DefaultClaimTTL
func WithClaimTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.claimTTL = d
		}
	}
}

// WithClock replaces the wall clock, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps an open, migrated connection
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		claimTTL: DefaultClaimTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// notFound maps gorm's sentinel to ours
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// common filter: processed and summarized
func publishable(tx *gorm.DB) *gorm.DB {
	return tx.Where("articles.is_processed = ?", true).
		Where("EXISTS (SELECT 1 FROM summaries WHERE summaries.article_id = articles.id)")
}

func pageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
