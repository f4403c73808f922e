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
	insightContentRunes = 3000
	insightTemperature  = 0.7
	insightMaxTokens    = 3000
)

// InsightResult stored insights and the analysis they came from. Created is
// false when existing insights were returned.
type InsightResult struct {
	Insights []models.Insight        `json:"insights"`
	Analysis *aitext.InsightAnalysis `json:"analysis,omitempty"`
	Created  bool                    `json:"created"`
}

// InsightGenerator derives typed insights from summarized articles
type InsightGenerator struct {
	store    *store.Store
	llm      llm.Completer
	language string
	batch    int
}

// NewInsightGenerator batch size and output language come from cfg
func NewInsightGenerator(st *store.Store, completer llm.Completer, cfg config.PipelineConfig) *InsightGenerator {
	return &InsightGenerator{
		store:    st,
		llm:      completer,
		language: cfg.Language,
		batch:    cfg.InsightBatch,
	}
}

// Generate requires a summary; articles that already have insights are
// returned as they are
func (g *InsightGenerator) Generate(ctx context.Context, articleID uint) (*InsightResult, error) {
	article, err := g.store.GetArticle(articleID)
	if err != nil {
		return nil, err
	}
	return g.generate(ctx, article)
}

func (g *InsightGenerator) generate(ctx context.Context, article *models.Article) (*InsightResult, error) {
	if article.Summary == nil {
		return nil, ErrNoSummary
	}

	if res, err := g.stored(article.ID); res != nil || err != nil {
		return res, err
	}

	token, err := g.store.Claim(article.ID, models.ActionInsights)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := g.store.Release(article.ID, models.ActionInsights, token); err != nil {
			log.Warn().Err(err).Uint("article_id", article.ID).Msg("failed to release claim")
		}
	}()

	// another run may have finished between the check and the claim
	if res, err := g.stored(article.ID); res != nil || err != nil {
		return res, err
	}

	result, err := g.analyze(ctx, article)
	if err != nil {
		log.Error().Err(err).Uint("article_id", article.ID).Str("action", models.ActionInsights).Msg("insight generation failed")
		g.store.AppendLog(models.ActionInsights, models.StatusError,
			fmt.Sprintf("Failed to generate insights: %v", err),
			map[string]any{"articleId": article.ID, "error": err.Error()})
		return nil, err
	}

	g.store.AppendLog(models.ActionInsights, models.StatusSuccess,
		"Generated insights for article: "+article.Title,
		map[string]any{
			"articleId":         article.ID,
			"insightTypes":      models.InsightTypes,
			"insightsCount":     len(result.Insights),
			"overallConfidence": result.Analysis.OverallConfidence,
		})
	return result, nil
}

// stored returns the existing insights, or nil when there are none
func (g *InsightGenerator) stored(articleID uint) (*InsightResult, error) {
	has, err := g.store.HasInsights(articleID)
	if err != nil || !has {
		return nil, err
	}
	existing, err := g.store.ListInsights(articleID)
	if err != nil {
		return nil, err
	}
	return &InsightResult{Insights: existing}, nil
}

func (g *InsightGenerator) analyze(ctx context.Context, article *models.Article) (*InsightResult, error) {
	language := config.LanguageName(g.language)
	body := aitext.Truncate(article.Content, insightContentRunes)

	raw, err := g.llm.Complete(ctx, llm.Chat(
		fmt.Sprintf(insightSystemPrompt, language),
		insightPrompt(article, article.Summary.Content, body, language),
		insightTemperature, insightMaxTokens,
	))
	if err != nil {
		return nil, fmt.Errorf("generate insights: %w", err)
	}

	analysis, err := aitext.ParseInsights(raw)
	if err != nil {
		return nil, fmt.Errorf("parse insights: %w", err)
	}

	meta, err := json.Marshal(analysis.InsightMeta)
	if err != nil {
		return nil, fmt.Errorf("encode insight metadata: %w", err)
	}

	entries := analysis.Entries()
	insights := make([]models.Insight, 0, len(entries))
	for _, e := range entries {
		insights = append(insights, models.Insight{
			ArticleID:  article.ID,
			Type:       e.Type,
			Title:      e.Title,
			Content:    e.Description,
			Confidence: e.Confidence,
			Metadata:   string(meta),
		})
	}
	if err := g.store.SaveInsights(insights); err != nil {
		return nil, fmt.Errorf("save insights: %w", err)
	}
	return &InsightResult{Insights: insights, Analysis: analysis, Created: true}, nil
}

// RunBatch generates insights for summarized articles without any
func (g *InsightGenerator) RunBatch(ctx context.Context) (*BatchResult, error) {
	articles, err := g.store.ArticlesNeedingInsights(g.batch)
	if err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}

	result := &BatchResult{Total: len(articles)}
	for i := range articles {
		if ctx.Err() != nil {
			break
		}
		res, err := g.generate(ctx, &articles[i])
		switch {
		case errors.Is(err, store.ErrClaimed):
			result.Skipped++
		case err != nil:
			result.Failed++
		case res.Created:
			result.Processed++
		default:
			result.Skipped++
		}
	}

	log.Info().Int("processed", result.Processed).Int("total", result.Total).Msg("insights batch finished")
	return result, nil
}
