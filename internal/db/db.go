package db

import (
	"fmt"
	"time"

	"technews/internal/config"
	"technews/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database and runs migrations
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.URL)
	case "sqlite":
		dialector = sqlite.Open(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true, // unique violations surface as gorm.ErrDuplicatedKey
		Logger:         newGormLogger(),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite allows one writer; a single connection keeps writes serialized
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		conn.Exec("PRAGMA foreign_keys = ON")
	}
	log.Info().Str("driver", cfg.Driver).Msg("database connection established")

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// gormWriter forwards gorm's slow query and error lines to zerolog
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}

// newGormLogger reports slow queries and errors. A missed lookup is normal
// control flow for tags and summaries and is not logged.
func newGormLogger() gormlogger.Interface {
	return gormlogger.New(gormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Migrate creates or updates all tables
func Migrate(conn *gorm.DB) error {
	if err := conn.SetupJoinTable(&models.Article{}, "Tags", &models.ArticleTag{}); err != nil {
		return fmt.Errorf("setup join table: %w", err)
	}
	err := conn.AutoMigrate(
		&models.Category{},
		&models.Source{},
		&models.Tag{},
		&models.Article{},
		&models.ArticleTag{},
		&models.Summary{},
		&models.Insight{},
		&models.ProcessingLog{},
		&models.StageClaim{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Debug().Msg("database migration completed")
	return nil
}
