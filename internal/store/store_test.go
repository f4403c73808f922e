package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"technews/internal/config"
	"technews/internal/db"
	"technews/internal/models"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite",
		URL:    filepath.Join(t.TempDir(), "store.db"),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return New(conn, opts...)
}

func seedSource(t *testing.T, s *Store, name string) *models.Source {
	t.Helper()
	src := &models.Source{Name: name, URL: "https://" + name + ".example.com", FeedURL: "https://" + name + ".example.com/rss"}
	if err := s.CreateSource(src); err != nil {
		t.Fatalf("create source: %v", err)
	}
	return src
}

func seedArticle(t *testing.T, s *Store, src *models.Source, url string) *models.Article {
	t.Helper()
	a := &models.Article{
		Title:       "Article " + url,
		Content:     "body of " + url,
		URL:         url,
		PublishedAt: time.Now().UTC(),
		SourceID:    src.ID,
		CategoryID:  src.CategoryID,
	}
	if err := s.CreateArticle(a); err != nil {
		t.Fatalf("create article: %v", err)
	}
	return a
}

func summarize(t *testing.T, s *Store, a *models.Article) {
	t.Helper()
	if err := s.SaveSummary(&models.Summary{ArticleID: a.ID, Title: "S " + a.Title, Content: "summary"}); err != nil {
		t.Fatalf("save summary: %v", err)
	}
}

func TestCreateArticleRejectsDuplicateURL(t *testing.T) {
	s := newTestStore(t)
	src := seedSource(t, s, "wire")
	seedArticle(t, s, src, "https://news.example.com/1")

	dup := &models.Article{Title: "Other", URL: "https://news.example.com/1", PublishedAt: time.Now(), SourceID: src.ID}
	if err := s.CreateArticle(dup); !errors.Is(err, ErrDuplicateURL) {
		t.Fatalf("err = %v, want ErrDuplicateURL", err)
	}

	ok, err := s.ArticleExistsByURL("https://news.example.com/1")
	if err != nil || !ok {
		t.Errorf("ArticleExistsByURL = %v, %v", ok, err)
	}
	if n, _ := s.CountArticles(); n != 1 {
		t.Errorf("CountArticles = %d, want 1", n)
	}
}

func TestGetArticleNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetArticle(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPipelineSelection(t *testing.T) {
	s := newTestStore(t)
	src := seedSource(t, s, "verge")
	a1 := seedArticle(t, s, src, "https://x/1")
	a2 := seedArticle(t, s, src, "https://x/2")

	need, err := s.ArticlesNeedingSummary(5)
	if err != nil || len(need) != 2 {
		t.Fatalf("ArticlesNeedingSummary = %d, %v", len(need), err)
	}
	if need[0].Source.Name != "verge" {
		t.Errorf("source not preloaded: %+v", need[0].Source)
	}

	summarize(t, s, a1)

	need, _ = s.ArticlesNeedingSummary(5)
	if len(need) != 1 || need[0].ID != a2.ID {
		t.Fatalf("after summary: %+v", need)
	}

	tagNeed, _ := s.ArticlesNeedingTags(10)
	if len(tagNeed) != 1 || tagNeed[0].ID != a1.ID {
		t.Fatalf("ArticlesNeedingTags = %+v", tagNeed)
	}

	tag, err := s.UpsertTag("ai", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceArticleTags(a1.ID, []uint{tag.ID, tag.ID}); err != nil {
		t.Fatal(err)
	}
	if tagNeed, _ = s.ArticlesNeedingTags(10); len(tagNeed) != 0 {
		t.Errorf("tagged article still selected: %+v", tagNeed)
	}

	insNeed, _ := s.ArticlesNeedingInsights(3)
	if len(insNeed) != 1 {
		t.Fatalf("ArticlesNeedingInsights = %d", len(insNeed))
	}
	err = s.SaveInsights([]models.Insight{{ArticleID: a1.ID, Type: models.InsightTrend, Title: "t", Content: "c", Confidence: 0.8}})
	if err != nil {
		t.Fatal(err)
	}
	if has, _ := s.HasInsights(a1.ID); !has {
		t.Error("HasInsights = false")
	}
	if insNeed, _ = s.ArticlesNeedingInsights(3); len(insNeed) != 0 {
		t.Errorf("article with insights still selected")
	}
}

func TestSaveSummaryOnce(t *testing.T) {
	s := newTestStore(t)
	src := seedSource(t, s, "ars")
	a := seedArticle(t, s, src, "https://x/1")
	summarize(t, s, a)

	err := s.SaveSummary(&models.Summary{ArticleID: a.ID, Title: "again", Content: "again"})
	if !errors.Is(err, ErrSummaryExists) {
		t.Fatalf("err = %v, want ErrSummaryExists", err)
	}

	got, err := s.GetArticle(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsProcessed || got.Summary == nil || got.Summary.Title != "S "+a.Title {
		t.Errorf("unexpected article state: %+v", got)
	}
}

func TestClaim(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClaimTTL(time.Minute), WithClock(func() time.Time { return now }))
	src := seedSource(t, s, "hn")
	a := seedArticle(t, s, src, "https://x/1")

	token, err := s.Claim(a.ID, models.ActionSummarize)
	if err != nil || token == "" {
		t.Fatalf("Claim = %q, %v", token, err)
	}
	if _, err := s.Claim(a.ID, models.ActionSummarize); !errors.Is(err, ErrClaimed) {
		t.Fatalf("second claim err = %v, want ErrClaimed", err)
	}
	if _, err := s.Claim(a.ID, models.ActionTag); err != nil {
		t.Fatalf("other stage claim: %v", err)
	}

	need, _ := s.ArticlesNeedingSummary(5)
	if len(need) != 0 {
		t.Errorf("claimed article selected: %d", len(need))
	}

	// stale claims are taken over
	now = now.Add(2 * time.Minute)
	stolen, err := s.Claim(a.ID, models.ActionSummarize)
	if err != nil || stolen == token {
		t.Fatalf("takeover = %q, %v", stolen, err)
	}

	// releasing with an outdated token leaves the new claim in place
	if err := s.Release(a.ID, models.ActionSummarize, token); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Claim(a.ID, models.ActionSummarize); !errors.Is(err, ErrClaimed) {
		t.Errorf("claim after stale release err = %v", err)
	}
	if err := s.Release(a.ID, models.ActionSummarize, stolen); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Claim(a.ID, models.ActionSummarize); err != nil {
		t.Errorf("claim after release: %v", err)
	}
}

func TestSources(t *testing.T) {
	s := newTestStore(t)
	cat, err := s.UpsertCategory(&models.Category{Name: "AI", Color: "#3B82F6"})
	if err != nil {
		t.Fatal(err)
	}
	again, err := s.UpsertCategory(&models.Category{Name: "AI"})
	if err != nil || again.ID != cat.ID || again.Color != "#3B82F6" {
		t.Fatalf("second upsert = %+v, %v", again, err)
	}

	src := &models.Source{Name: "TechCrunch", URL: "https://techcrunch.com", FeedURL: "https://techcrunch.com/feed/", CategoryID: &cat.ID}
	if err := s.CreateSource(src); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSource(&models.Source{Name: "TC", URL: "x", FeedURL: "https://techcrunch.com/feed/"}); !errors.Is(err, ErrDuplicateSource) {
		t.Errorf("duplicate feed err = %v", err)
	}
	if err := s.CreateSource(&models.Source{Name: "TechCrunch", URL: "x", FeedURL: "https://other/feed"}); !errors.Is(err, ErrDuplicateSource) {
		t.Errorf("duplicate name err = %v", err)
	}

	if _, err := s.SetSourceActive(src.ID, false); err != nil {
		t.Fatal(err)
	}
	active, _ := s.ActiveFeedSources()
	if len(active) != 0 {
		t.Errorf("inactive source returned: %+v", active)
	}

	updated, created, err := s.UpsertSource(&models.Source{Name: "TechCrunch", URL: "https://techcrunch.com", FeedURL: "https://techcrunch.com/rss"})
	if err != nil || created {
		t.Fatalf("UpsertSource = %v, %v", created, err)
	}
	if !updated.IsActive || updated.FeedURL != "https://techcrunch.com/rss" {
		t.Errorf("source not refreshed: %+v", updated)
	}

	a := seedArticle(t, s, updated, "https://techcrunch.com/a")
	summarize(t, s, a)

	list, err := s.ListSources()
	if err != nil || len(list) != 1 || list[0].ArticleCount != 1 {
		t.Fatalf("ListSources = %+v, %v", list, err)
	}
	cats, _ := s.ListCategories()
	// UpsertSource cleared the category, so the article has none
	if len(cats) != 1 || cats[0].ArticleCount != 0 {
		t.Errorf("ListCategories = %+v", cats)
	}

	if err := s.DeleteSource(src.ID); !errors.Is(err, ErrSourceInUse) {
		t.Errorf("delete in use err = %v", err)
	}
	if err := s.DeleteSource(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing err = %v", err)
	}
	empty := seedSource(t, s, "empty")
	if err := s.DeleteSource(empty.ID); err != nil {
		t.Errorf("delete unused: %v", err)
	}
}

func TestListPublishable(t *testing.T) {
	s := newTestStore(t)
	cat, _ := s.UpsertCategory(&models.Category{Name: "Security"})
	src := &models.Source{Name: "krebs", URL: "https://krebs", FeedURL: "https://krebs/feed", CategoryID: &cat.ID}
	if err := s.CreateSource(src); err != nil {
		t.Fatal(err)
	}

	a1 := seedArticle(t, s, src, "https://k/1")
	a2 := seedArticle(t, s, src, "https://k/2")
	seedArticle(t, s, src, "https://k/3") // never summarized
	summarize(t, s, a1)
	summarize(t, s, a2)

	tag, _ := s.UpsertTag("ransomware", "")
	s.ReplaceArticleTags(a2.ID, []uint{tag.ID})

	all, total, err := s.ListPublishable(ArticleFilter{Limit: 10})
	if err != nil || total != 2 || len(all) != 2 {
		t.Fatalf("ListPublishable = %d/%d, %v", len(all), total, err)
	}

	byTag, total, _ := s.ListPublishable(ArticleFilter{Tag: "ransomware"})
	if total != 1 || byTag[0].ID != a2.ID || len(byTag[0].Tags) != 1 {
		t.Errorf("tag filter = %+v", byTag)
	}
	byCat, total, _ := s.ListPublishable(ArticleFilter{Category: "Security"})
	if total != 2 || len(byCat) != 2 {
		t.Errorf("category filter = %d", total)
	}
	bySearch, total, _ := s.ListPublishable(ArticleFilter{Search: "K/1"})
	if total != 1 || bySearch[0].ID != a1.ID {
		t.Errorf("search filter = %+v", bySearch)
	}

	page2, total, _ := s.ListPublishable(ArticleFilter{Limit: 1, Page: 2})
	if total != 2 || len(page2) != 1 {
		t.Errorf("page 2 = %d/%d", len(page2), total)
	}

	got, err := s.GetPublishable(a1.ID)
	if err != nil || got.Views != 1 {
		t.Fatalf("GetPublishable = %+v, %v", got, err)
	}
	if _, err := s.GetPublishable(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}

	tags, _ := s.ListTags(0)
	if len(tags) != 1 || tags[0].ArticleCount != 1 {
		t.Errorf("ListTags = %+v", tags)
	}
	cats, _ := s.ListCategories()
	if len(cats) != 1 || cats[0].ArticleCount != 2 {
		t.Errorf("ListCategories = %+v", cats)
	}
}

func TestLogs(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return now }))

	s.AppendLog(models.ActionFetch, models.StatusSuccess, "fetched a", map[string]any{"articleId": 1})
	s.AppendLog(models.ActionFetch, models.StatusSuccess, "fetched b", nil)
	s.AppendLog(models.ActionSummarize, models.StatusError, "boom", nil)
	now = now.AddDate(0, 0, -1)
	s.AppendLog(models.ActionTag, models.StatusSuccess, "yesterday", nil)
	now = now.AddDate(0, 0, 1)

	logs, total, err := s.ListLogs(LogFilter{Day: now})
	if err != nil || total != 3 || len(logs) != 3 {
		t.Fatalf("ListLogs(today) = %d/%d, %v", len(logs), total, err)
	}
	if logs[0].Message != "boom" {
		t.Errorf("not newest first: %q", logs[0].Message)
	}
	if logs[2].Metadata != `{"articleId":1}` {
		t.Errorf("metadata = %q", logs[2].Metadata)
	}

	filtered, total, _ := s.ListLogs(LogFilter{Action: models.ActionFetch, Status: models.StatusSuccess, Limit: 1})
	if total != 2 || len(filtered) != 1 {
		t.Errorf("filtered = %d/%d", len(filtered), total)
	}

	start := StartOfDay(now)
	stats, err := s.LogStatistics(start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if stats["fetch_success"] != 2 || stats["summarize_error"] != 1 || stats["tag_success"] != 0 {
		t.Errorf("stats = %v", stats)
	}

	counts, _ := s.SuccessCountsSince(start)
	if counts[models.ActionFetch] != 2 || counts[models.ActionTag] != 0 {
		t.Errorf("SuccessCountsSince = %v", counts)
	}
	if n, _ := s.CountLogsSince(start); n != 3 {
		t.Errorf("CountLogsSince = %d", n)
	}
}

func TestViewCountFailureStillServesArticle(t *testing.T) {
	s := newTestStore(t)
	src := seedSource(t, s, "Example")
	a := seedArticle(t, s, src, "https://example.com/views")
	summarize(t, s, a)

	if got, err := s.GetPublishable(a.ID); err != nil || got.Views != 1 {
		t.Fatalf("first view = %+v, %v", got, err)
	}

	err := s.DB().Exec(`CREATE TRIGGER freeze_views BEFORE UPDATE OF views ON articles
		BEGIN SELECT RAISE(ABORT, 'views frozen'); END`).Error
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.GetPublishable(a.ID)
	if err != nil {
		t.Fatalf("GetPublishable err = %v, want the article", err)
	}
	if got.Views != 1 {
		t.Errorf("views = %d, want 1 while the counter cannot be written", got.Views)
	}
}
