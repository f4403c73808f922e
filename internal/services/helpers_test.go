package services

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"technews/internal/config"
	"technews/internal/db"
	"technews/internal/llm"
	"technews/internal/models"
	"technews/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite",
		URL:    filepath.Join(t.TempDir(), "services.db"),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return store.New(conn)
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Language:       "ar",
		SummarizeBatch: 5,
		TagBatch:       10,
		InsightBatch:   3,
		UserAgent:      "Mozilla/5.0 (compatible; TechNewsBot/1.0)",
		FetchTimeout:   5 * time.Second,
	}
}

// fakeCompleter answers every request with reply and counts calls
type fakeCompleter struct {
	reply string
	err   error
	calls atomic.Int32
	last  llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.calls.Add(1)
	f.last = req
	return f.reply, f.err
}

// gateCompleter holds its first call until release is closed; later calls
// answer at once
type gateCompleter struct {
	reply   string
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newGateCompleter(reply string) *gateCompleter {
	return &gateCompleter{reply: reply, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateCompleter) Complete(ctx context.Context, _ llm.Request) (string, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
		select {
		case <-g.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.reply, nil
}

func seedArticle(t *testing.T, st *store.Store, url string) *models.Article {
	t.Helper()
	cat, err := st.UpsertCategory(&models.Category{Name: "تقنية"})
	if err != nil {
		t.Fatal(err)
	}
	src, _, err := st.UpsertSource(&models.Source{
		Name:       "TechCrunch",
		URL:        "https://techcrunch.com",
		FeedURL:    "https://techcrunch.com/feed/",
		CategoryID: &cat.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	a := &models.Article{
		Title:       "Chipmaker unveils accelerator",
		Content:     "The company announced a new accelerator for training large models.",
		URL:         url,
		PublishedAt: time.Now().UTC(),
		SourceID:    src.ID,
		CategoryID:  src.CategoryID,
	}
	if err := st.CreateArticle(a); err != nil {
		t.Fatal(err)
	}
	return a
}

func countLogs(t *testing.T, st *store.Store, action, status string) int64 {
	t.Helper()
	_, total, err := st.ListLogs(store.LogFilter{Action: action, Status: status})
	if err != nil {
		t.Fatal(err)
	}
	return total
}

const templatedSummary = `## Summary Title
معالج جديد لتسريع تدريب النماذج

## Executive Summary
أعلنت الشركة عن معالج جديد مخصص لتدريب النماذج الكبيرة.

## Key Points
• أداء أعلى بمرتين
• استهلاك طاقة أقل

## Strategic Analysis
**Opportunities:**
- خفض تكلفة التدريب للشركات الناشئة

## Recommendations
**For investors:**
متابعة سلسلة التوريد عن قرب`
