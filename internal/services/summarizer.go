package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"technews/internal/aitext"
	"technews/internal/config"
	"technews/internal/llm"
	"technews/internal/models"
	"technews/internal/store"

	"github.com/rs/zerolog/log"
)

const (
	summaryContentRunes = 4000
	summaryTemperature  = 0.6
	summaryMaxTokens    = 2000
	summaryConfidence   = 0.9
)

// BatchResult outcome of one batch run of a stage
type BatchResult struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Summarizer produces the structured digest of an article
type Summarizer struct {
	store    *store.Store
	llm      llm.Completer
	language string
	batch    int
}

// NewSummarizer batch size and output language come from cfg
func NewSummarizer(st *store.Store, completer llm.Completer, cfg config.PipelineConfig) *Summarizer {
	return &Summarizer{
		store:    st,
		llm:      completer,
		language: cfg.Language,
		batch:    cfg.SummarizeBatch,
	}
}

// Summarize returns the article's summary, generating it when missing.
// created is false when a stored summary was returned.
func (s *Summarizer) Summarize(ctx context.Context, articleID uint) (*models.Summary, bool, error) {
	article, err := s.store.GetArticle(articleID)
	if err != nil {
		return nil, false, err
	}
	return s.summarize(ctx, article)
}

func (s *Summarizer) summarize(ctx context.Context, article *models.Article) (*models.Summary, bool, error) {
	if article.Summary != nil {
		if !article.IsProcessed {
			if err := s.store.MarkProcessed(article.ID); err != nil {
				return nil, false, err
			}
		}
		return article.Summary, false, nil
	}

	token, err := s.store.Claim(article.ID, models.ActionSummarize)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if err := s.store.Release(article.ID, models.ActionSummarize, token); err != nil {
			log.Warn().Err(err).Uint("article_id", article.ID).Msg("failed to release claim")
		}
	}()

	// the article may have been summarized since it was loaded
	if existing, err := s.store.GetSummary(article.ID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	summary, err := s.generate(ctx, article)
	if errors.Is(err, store.ErrSummaryExists) {
		existing, getErr := s.store.GetSummary(article.ID)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		log.Error().Err(err).Uint("article_id", article.ID).Str("action", models.ActionSummarize).Msg("summarization failed")
		s.store.AppendLog(models.ActionSummarize, models.StatusError,
			fmt.Sprintf("Failed to summarize article: %v", err),
			map[string]any{"articleId": article.ID, "error": err.Error()})
		return nil, false, err
	}

	s.store.AppendLog(models.ActionSummarize, models.StatusSuccess,
		"Summarized article: "+article.Title,
		map[string]any{"articleId": article.ID, "summaryId": summary.ID, "wordCount": summary.WordCount})
	return summary, true, nil
}

func (s *Summarizer) generate(ctx context.Context, article *models.Article) (*models.Summary, error) {
	language := config.LanguageName(s.language)
	body := aitext.Truncate(article.Content, summaryContentRunes)

	raw, err := s.llm.Complete(ctx, llm.Chat(
		fmt.Sprintf(summarySystemPrompt, language),
		summaryPrompt(article, body, language),
		summaryTemperature, summaryMaxTokens,
	))
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}
	if raw == "" {
		return nil, ErrEmptyResponse
	}

	doc := aitext.ParseSummary(raw, article.Title)
	if !doc.Parsed {
		log.Debug().Uint("article_id", article.ID).Msg("summary sections not found, storing raw response")
	}
	keyPoints, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode key points: %w", err)
	}

	summary := &models.Summary{
		ArticleID:  article.ID,
		Title:      doc.Title,
		Content:    doc.Body,
		KeyPoints:  string(keyPoints),
		Language:   s.language,
		Confidence: summaryConfidence,
		WordCount:  aitext.WordCount(doc.Body),
	}
	if err := s.store.SaveSummary(summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// RunBatch summarizes up to the configured number of eligible articles,
// one after another. Failures are logged and skipped.
func (s *Summarizer) RunBatch(ctx context.Context) (*BatchResult, error) {
	articles, err := s.store.ArticlesNeedingSummary(s.batch)
	if err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}

	result := &BatchResult{Total: len(articles)}
	for i := range articles {
		if ctx.Err() != nil {
			break
		}
		_, created, err := s.summarize(ctx, &articles[i])
		switch {
		case errors.Is(err, store.ErrClaimed):
			result.Skipped++
		case err != nil:
			result.Failed++
		case created:
			result.Processed++
		default:
			result.Skipped++
		}
	}

	log.Info().Int("processed", result.Processed).Int("total", result.Total).Msg("summarize batch finished")
	return result, nil
}
