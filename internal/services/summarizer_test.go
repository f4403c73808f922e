package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"technews/internal/llm"
	"technews/internal/models"
	"technews/internal/store"
)

func TestSummarizeIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	a := seedArticle(t, st, "https://techcrunch.com/a")
	completer := &fakeCompleter{reply: templatedSummary}
	s := NewSummarizer(st, completer, testPipelineConfig())

	first, created, err := s.Summarize(context.Background(), a.ID)
	if err != nil || !created {
		t.Fatalf("first Summarize = %v, %v", created, err)
	}
	if first.Title != "معالج جديد لتسريع تدريب النماذج" {
		t.Errorf("Title = %q", first.Title)
	}
	if !strings.HasPrefix(first.Content, "أعلنت الشركة") || !strings.Contains(first.Content, "\n\n**Opportunities:**") {
		t.Errorf("Content = %q", first.Content)
	}
	if first.Language != "ar" || first.Confidence != 0.9 || first.WordCount == 0 {
		t.Errorf("unexpected summary fields: %+v", first)
	}

	var blob map[string]any
	if err := json.Unmarshal([]byte(first.KeyPoints), &blob); err != nil {
		t.Fatalf("keyPoints not JSON: %v", err)
	}
	for _, key := range []string{"executiveSummary", "keyPoints", "strategicAnalysis", "recommendations", "kpis", "timeline"} {
		if _, ok := blob[key]; !ok {
			t.Errorf("keyPoints missing %s", key)
		}
	}

	req := completer.last
	if req.Temperature != 0.6 || req.MaxTokens != 2000 || len(req.Messages) != 2 {
		t.Errorf("unexpected request: %+v", req)
	}

	second, created, err := s.Summarize(context.Background(), a.ID)
	if err != nil || created {
		t.Fatalf("second Summarize = %v, %v", created, err)
	}
	if second.ID != first.ID {
		t.Errorf("second call returned a different summary")
	}
	if n := completer.calls.Load(); n != 1 {
		t.Errorf("completer called %d times, want 1", n)
	}

	got, _ := st.GetArticle(a.ID)
	if !got.IsProcessed {
		t.Error("article not marked processed")
	}
	if n := countLogs(t, st, models.ActionSummarize, models.StatusSuccess); n != 1 {
		t.Errorf("success logs = %d, want 1", n)
	}
}

func TestSummarizeTruncatesContent(t *testing.T) {
	st := newTestStore(t)
	a := seedArticle(t, st, "https://techcrunch.com/long")
	st.DB().Model(&models.Article{}).Where("id = ?", a.ID).Update("content", strings.Repeat("x", 5000)+"TAIL")

	completer := &fakeCompleter{reply: templatedSummary}
	s := NewSummarizer(st, completer, testPipelineConfig())
	if _, _, err := s.Summarize(context.Background(), a.ID); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(completer.last.Messages[1].Content, "TAIL") {
		t.Error("content was not truncated")
	}
}

func TestSummarizeFallsBackToRawResponse(t *testing.T) {
	st := newTestStore(t)
	a := seedArticle(t, st, "https://techcrunch.com/raw")
	raw := "A plain answer without any of the requested headings."
	s := NewSummarizer(st, &fakeCompleter{reply: raw}, testPipelineConfig())

	sum, _, err := s.Summarize(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Content != raw || sum.Title != a.Title {
		t.Errorf("fallback summary = %+v", sum)
	}
}

func TestSummarizeFailureIsLogged(t *testing.T) {
	st := newTestStore(t)
	a := seedArticle(t, st, "https://techcrunch.com/fail")
	s := NewSummarizer(st, &fakeCompleter{err: errors.New("upstream down")}, testPipelineConfig())

	if _, _, err := s.Summarize(context.Background(), a.ID); err == nil {
		t.Fatal("expected error")
	}
	if _, err := st.GetSummary(a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("summary stored after failure: %v", err)
	}
	if n := countLogs(t, st, models.ActionSummarize, models.StatusError); n != 1 {
		t.Errorf("error logs = %d, want 1", n)
	}

	// the claim is released, a later run may retry
	if _, err := st.Claim(a.ID, models.ActionSummarize); err != nil {
		t.Errorf("claim after failure: %v", err)
	}
}

func TestSummarizeNotFound(t *testing.T) {
	st := newTestStore(t)
	s := NewSummarizer(st, &fakeCompleter{reply: templatedSummary}, testPipelineConfig())
	if _, _, err := s.Summarize(context.Background(), 99); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSummarizeBatch(t *testing.T) {
	st := newTestStore(t)
	for _, u := range []string{"https://x/1", "https://x/2", "https://x/3"} {
		seedArticle(t, st, u)
	}
	cfg := testPipelineConfig()
	cfg.SummarizeBatch = 2
	completer := &fakeCompleter{reply: templatedSummary}
	s := NewSummarizer(st, completer, cfg)

	res, err := s.RunBatch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 2 || res.Total != 2 {
		t.Errorf("first batch = %+v", res)
	}
	res, _ = s.RunBatch(context.Background())
	if res.Processed != 1 || res.Total != 1 {
		t.Errorf("second batch = %+v", res)
	}
	res, _ = s.RunBatch(context.Background())
	if res.Total != 0 {
		t.Errorf("third batch = %+v", res)
	}
}

func TestConcurrentBatchesSummarizeOnce(t *testing.T) {
	st := newTestStore(t)
	a := seedArticle(t, st, "https://techcrunch.com/race")

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var calls sync.WaitGroup
	var count int32
	var mu sync.Mutex

	blocking := llm.CompleterFunc(func(ctx context.Context, req llm.Request) (string, error) {
		mu.Lock()
		count++
		mu.Unlock()
		once.Do(func() { close(started) })
		<-release
		return templatedSummary, nil
	})
	s := NewSummarizer(st, blocking, testPipelineConfig())

	var first *BatchResult
	calls.Add(1)
	go func() {
		defer calls.Done()
		first, _ = s.RunBatch(context.Background())
	}()
	<-started

	second, err := s.RunBatch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second.Total != 0 || second.Processed != 0 {
		t.Errorf("concurrent batch picked the claimed article: %+v", second)
	}
	if _, _, err := s.Summarize(context.Background(), a.ID); !errors.Is(err, store.ErrClaimed) {
		t.Errorf("direct summarize err = %v, want ErrClaimed", err)
	}

	close(release)
	calls.Wait()

	if first == nil || first.Processed != 1 {
		t.Errorf("first batch = %+v", first)
	}
	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("completer called %d times, want 1", count)
	}
	var summaries int64
	st.DB().Model(&models.Summary{}).Where("article_id = ?", a.ID).Count(&summaries)
	if summaries != 1 {
		t.Errorf("summaries = %d, want 1", summaries)
	}
}

func TestOverlappingSummarizeBatchesCallOncePerArticle(t *testing.T) {
	st := newTestStore(t)
	seedArticle(t, st, "https://techcrunch.com/1")
	second := seedArticle(t, st, "https://techcrunch.com/2")

	completer := newGateCompleter(templatedSummary)
	s := NewSummarizer(st, completer, testPipelineConfig())

	var wg sync.WaitGroup
	var slow *BatchResult
	wg.Add(1)
	go func() {
		defer wg.Done()
		slow, _ = s.RunBatch(context.Background())
	}()
	<-completer.started

	fast, err := s.RunBatch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if fast.Total != 1 || fast.Processed != 1 {
		t.Errorf("fast batch = %+v", fast)
	}

	close(completer.release)
	wg.Wait()

	if slow == nil || slow.Processed != 1 || slow.Skipped != 1 {
		t.Errorf("slow batch = %+v, want one processed and one skipped", slow)
	}
	if n := completer.calls.Load(); n != 2 {
		t.Errorf("completer called %d times, want 2", n)
	}
	if n := countLogs(t, st, models.ActionSummarize, models.StatusSuccess); n != 2 {
		t.Errorf("summarize success logs = %d, want 2", n)
	}
	var summaries int64
	st.DB().Model(&models.Summary{}).Where("article_id = ?", second.ID).Count(&summaries)
	if summaries != 1 {
		t.Errorf("summaries for second article = %d, want 1", summaries)
	}
}
