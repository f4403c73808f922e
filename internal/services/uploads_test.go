package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"technews/internal/models"
	"technews/internal/store"
)

func TestAddArticle(t *testing.T) {
	st := newTestStore(t)
	u := NewUploader(st, testPipelineConfig())
	u.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	a, err := u.AddArticle(ArticleInput{Title: "  Chip launch ", Content: "A new chip.", Source: "Tech Desk"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Title != "Chip launch" || a.Language != "ar" || a.IsProcessed {
		t.Errorf("article = %+v", a)
	}
	if a.Category == nil || a.Category.Name != DefaultCategory {
		t.Errorf("category = %+v, want %s", a.Category, DefaultCategory)
	}
	if a.Source.URL != "https://techdesk.com" {
		t.Errorf("source url = %q", a.Source.URL)
	}
	if !strings.HasPrefix(a.URL, "https://techdesk.com/article/") {
		t.Errorf("generated url = %q", a.URL)
	}

	// the source is reused, not refreshed
	b, err := u.AddArticle(ArticleInput{Title: "Second", Content: "More.", Source: "Tech Desk", URL: "https://elsewhere.test/2"})
	if err != nil {
		t.Fatal(err)
	}
	if b.SourceID != a.SourceID || b.Source.URL != "https://techdesk.com" {
		t.Errorf("source = %+v, want the first one", b.Source)
	}

	if _, err := u.AddArticle(ArticleInput{Title: "Again", Content: "Dup.", Source: "Tech Desk", URL: "https://elsewhere.test/2"}); !errors.Is(err, store.ErrDuplicateURL) {
		t.Errorf("duplicate err = %v, want ErrDuplicateURL", err)
	}
	if n := countLogs(t, st, models.ActionTextUpload, models.StatusSuccess); n != 2 {
		t.Errorf("success logs = %d, want 2", n)
	}
	if n := countLogs(t, st, models.ActionTextUpload, models.StatusError); n != 0 {
		t.Errorf("error logs = %d, want 0", n)
	}
}

func TestAddArticleRequiresFields(t *testing.T) {
	st := newTestStore(t)
	u := NewUploader(st, testPipelineConfig())

	for _, in := range []ArticleInput{
		{Content: "body", Source: "s"},
		{Title: "t", Content: "   ", Source: "s"},
		{Title: "t", Content: "body"},
	} {
		if _, err := u.AddArticle(in); !errors.Is(err, ErrMissingFields) {
			t.Errorf("AddArticle(%+v) err = %v, want ErrMissingFields", in, err)
		}
	}
	if n, _ := st.CountArticles(); n != 0 {
		t.Errorf("articles = %d, want 0", n)
	}
}
