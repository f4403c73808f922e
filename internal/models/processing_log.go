package models

import (
	"encoding/json"
	"time"
)

// Log statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusPending = "pending"
)

// Pipeline actions recorded in the log
const (
	ActionFetch     = "fetch"
	ActionSummarize = "summarize"
	ActionTag       = "tag"
	ActionInsights  = "insights"

	// ActionTextUpload manual article registration
	ActionTextUpload = "text_upload"
)

// ProcessingLog append-only audit row, never updated
type ProcessingLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Action    string    `gorm:"size:32;not null;index" json:"action"`
	Status    string    `gorm:"size:16;not null;index" json:"status"`
	Message   string    `gorm:"type:text" json:"message"`
	Metadata  string    `gorm:"type:text" json:"metadata"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// StageClaim marks an article as in progress for one stage
type StageClaim struct {
	ID        uint      `gorm:"primaryKey"`
	ArticleID uint      `gorm:"not null;uniqueIndex:idx_claim_article_stage"`
	Stage     string    `gorm:"size:32;not null;uniqueIndex:idx_claim_article_stage"`
	Token     string    `gorm:"size:36;not null"`
	ClaimedAt time.Time `gorm:"not null;index"`
}

type plainLog ProcessingLog

// MarshalJSON emits metadata as the JSON value it holds
func (l ProcessingLog) MarshalJSON() ([]byte, error) {
	out := struct {
		plainLog
		Metadata json.RawMessage `json:"metadata,omitempty"`
	}{plainLog: plainLog(l)}
	if l.Metadata != "" && json.Valid([]byte(l.Metadata)) {
		out.Metadata = json.RawMessage(l.Metadata)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts metadata as a JSON value
func (l *ProcessingLog) UnmarshalJSON(data []byte) error {
	var in struct {
		plainLog
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*l = ProcessingLog(in.plainLog)
	if len(in.Metadata) > 0 && string(in.Metadata) != "null" {
		l.Metadata = string(in.Metadata)
	}
	return nil
}
