package store

import (
	"encoding/json"
	"fmt"
	"time"

	"technews/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// LogFilter processing log query
type LogFilter struct {
	// Day restricts to one UTC calendar day when non-zero
	Day    time.Time
	Action string
	Status string
	Page   int
	Limit  int
}

// AppendLog inserts an audit row. metadata is marshalled to JSON; failures
// to write are reported to the operational log only, a stage outcome never
// depends on its audit row.
func (s *Store) AppendLog(action, status, message string, metadata any) {
	var meta string
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			meta = string(b)
		}
	}
	entry := models.ProcessingLog{
		Action:    action,
		Status:    status,
		Message:   message,
		Metadata:  meta,
		CreatedAt: s.now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Error().Err(err).Str("action", action).Str("status", status).Msg("failed to write processing log")
	}
}

// ListLogs newest first with the total count of matching rows
func (s *Store) ListLogs(f LogFilter) ([]models.ProcessingLog, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	query := s.db.Model(&models.ProcessingLog{})
	if !f.Day.IsZero() {
		start, end := dayBounds(f.Day)
		query = query.Where("created_at >= ? AND created_at < ?", start, end)
	}
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	logs := make([]models.ProcessingLog, 0)
	err := query.Session(&gorm.Session{}).Order("created_at DESC, id DESC").
		Limit(f.Limit).
		Offset(pageOffset(f.Page, f.Limit)).
		Find(&logs).Error
	return logs, total, err
}

// LogStatistics counts rows per action and status in [since, until),
// keyed "action_status"
func (s *Store) LogStatistics(since, until time.Time) (map[string]int64, error) {
	builder := sq.Select("action", "status", "COUNT(*) AS count").
		From("processing_logs").
		GroupBy("action", "status")
	if !since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"created_at": since.UTC()})
	}
	if !until.IsZero() {
		builder = builder.Where(sq.Lt{"created_at": until.UTC()})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statistics query: %w", err)
	}

	var rows []struct {
		Action string
		Status string
		Count  int64
	}
	if err := s.db.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.Action+"_"+r.Status] = r.Count
	}
	return stats, nil
}

// SuccessCountsSince per action count of success rows since t
func (s *Store) SuccessCountsSince(t time.Time) (map[string]int64, error) {
	stats, err := s.LogStatistics(t, time.Time{})
	if err != nil {
		return nil, err
	}
	counts := map[string]int64{
		models.ActionFetch:     stats[models.ActionFetch+"_"+models.StatusSuccess],
		models.ActionSummarize: stats[models.ActionSummarize+"_"+models.StatusSuccess],
		models.ActionTag:       stats[models.ActionTag+"_"+models.StatusSuccess],
		models.ActionInsights:  stats[models.ActionInsights+"_"+models.StatusSuccess],
	}
	return counts, nil
}

// CountLogsSince total rows written since t
func (s *Store) CountLogsSince(t time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.ProcessingLog{}).Where("created_at >= ?", t.UTC()).Count(&count).Error
	return count, err
}

// dayBounds returns the UTC midnight that starts t's day and the next one
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// StartOfDay UTC midnight of t's day
func StartOfDay(t time.Time) time.Time {
	start, _ := dayBounds(t)
	return start
}
