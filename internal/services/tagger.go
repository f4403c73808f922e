package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"technews/internal/aitext"
	"technews/internal/config"
	"technews/internal/llm"
	"technews/internal/models"
	"technews/internal/store"

	"github.com/rs/zerolog/log"
)

const (
	tagContentRunes = 2000
	tagTemperature  = 0.5
	tagMaxTokens    = 200
	maxArticleTags  = 8
)

// TagResult names attached to an article
type TagResult struct {
	Tags          []string `json:"tags"`
	SuggestedTags []string `json:"suggestedTags"`
	TotalTags     int      `json:"totalTags"`
}

// Tagger labels processed articles from model suggestions and a fixed vocabulary
type Tagger struct {
	store      *store.Store
	llm        llm.Completer
	vocabulary []string
	language   string
	batch      int
}

// NewTagger vocabulary entries are attached only when the tag already exists
func NewTagger(st *store.Store, completer llm.Completer, vocabulary []string, cfg config.PipelineConfig) *Tagger {
	return &Tagger{
		store:      st,
		llm:        completer,
		vocabulary: vocabulary,
		language:   cfg.Language,
		batch:      cfg.TagBatch,
	}
}

// Tag replaces the article's tags with a fresh set of at most eight
func (t *Tagger) Tag(ctx context.Context, articleID uint) (*TagResult, error) {
	article, err := t.store.GetArticle(articleID)
	if err != nil {
		return nil, err
	}
	return t.tag(ctx, article, true)
}

// tag with retag false leaves articles that gained tags since they were
// selected alone and reports errStageDone
func (t *Tagger) tag(ctx context.Context, article *models.Article, retag bool) (*TagResult, error) {
	token, err := t.store.Claim(article.ID, models.ActionTag)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := t.store.Release(article.ID, models.ActionTag, token); err != nil {
			log.Warn().Err(err).Uint("article_id", article.ID).Msg("failed to release claim")
		}
	}()

	if !retag {
		has, err := t.store.HasTags(article.ID)
		if err != nil {
			return nil, err
		}
		if has {
			return nil, errStageDone
		}
	}

	result, err := t.assign(ctx, article)
	if err != nil {
		log.Error().Err(err).Uint("article_id", article.ID).Str("action", models.ActionTag).Msg("tagging failed")
		t.store.AppendLog(models.ActionTag, models.StatusError,
			fmt.Sprintf("Failed to tag article: %v", err),
			map[string]any{"articleId": article.ID, "error": err.Error()})
		return nil, err
	}

	t.store.AppendLog(models.ActionTag, models.StatusSuccess,
		"Tagged article: "+article.Title,
		map[string]any{
			"articleId":     article.ID,
			"tags":          result.Tags,
			"suggestedTags": result.SuggestedTags,
			"aiGenerated":   true,
		})
	return result, nil
}

func (t *Tagger) assign(ctx context.Context, article *models.Article) (*TagResult, error) {
	language := config.LanguageName(t.language)
	content := article.Title + "\n\n" + aitext.Truncate(article.Content, tagContentRunes)

	raw, err := t.llm.Complete(ctx, llm.Chat(
		fmt.Sprintf(tagSystemPrompt, language),
		tagPrompt(article, content, language),
		tagTemperature, tagMaxTokens,
	))
	if errors.Is(err, llm.ErrEmptyCompletion) || (err == nil && raw == "") {
		return nil, ErrNoTags
	}
	if err != nil {
		return nil, fmt.Errorf("generate tags: %w", err)
	}

	suggested := aitext.ParseTags(raw)
	merged := aitext.MergeTags(suggested, t.vocabulary, maxArticleTags)

	names := make([]string, 0, len(merged))
	ids := make([]uint, 0, len(merged))
	for _, name := range merged {
		tag, err := t.store.FindTagByName(name)
		if errors.Is(err, store.ErrNotFound) {
			// vocabulary entries are only attached when they already exist
			if !slices.Contains(suggested, name) {
				continue
			}
			tag, err = t.store.UpsertTag(name, "Auto tag for article: "+article.Title)
		}
		if err != nil {
			log.Warn().Err(err).Str("tag", name).Uint("article_id", article.ID).Msg("failed to resolve tag")
			continue
		}
		names = append(names, tag.Name)
		ids = append(ids, tag.ID)
	}

	if err := t.store.ReplaceArticleTags(article.ID, ids); err != nil {
		return nil, fmt.Errorf("replace tags: %w", err)
	}
	return &TagResult{Tags: names, SuggestedTags: suggested, TotalTags: len(names)}, nil
}

// RunBatch tags processed articles that have no tags yet
func (t *Tagger) RunBatch(ctx context.Context) (*BatchResult, error) {
	articles, err := t.store.ArticlesNeedingTags(t.batch)
	if err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}

	result := &BatchResult{Total: len(articles)}
	for i := range articles {
		if ctx.Err() != nil {
			break
		}
		_, err := t.tag(ctx, &articles[i], false)
		switch {
		case errors.Is(err, store.ErrClaimed), errors.Is(err, errStageDone):
			result.Skipped++
		case err != nil:
			result.Failed++
		default:
			result.Processed++
		}
	}

	log.Info().Int("processed", result.Processed).Int("total", result.Total).Msg("tag batch finished")
	return result, nil
}
