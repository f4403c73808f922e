package main

import (
	"fmt"

	"technews/internal/config"
	"technews/internal/db"
	"technews/internal/handlers"
	"technews/internal/llm"
	"technews/internal/logger"
	"technews/internal/services"
	"technews/internal/store"
	"technews/internal/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// app wires configuration, storage and the pipeline stages
type app struct {
	cfg        *config.Config
	conn       *gorm.DB
	store      *store.Store
	catalog    *services.Catalog
	cache      *utils.TTLCache
	fetcher    *services.Fetcher
	inspector  *services.FeedInspector
	summarizer *services.Summarizer
	tagger     *services.Tagger
	insights   *services.InsightGenerator
	uploader   *services.Uploader
	automation *services.Automation
}

func newApp(path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Pretty)

	if cfg.LLM.APIKey == "" {
		log.Warn().Msg("llm.api_key is empty, summarize, tag and insight stages will fail")
	}

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	catalog, err := services.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	st := store.New(conn, store.WithClaimTTL(cfg.Pipeline.ClaimTTL))
	completer := llm.NewOpenAIClient(cfg.LLM)
	cache := utils.GetCache()

	a := &app{
		cfg:        cfg,
		conn:       conn,
		store:      st,
		catalog:    catalog,
		cache:      cache,
		fetcher:    services.NewFetcher(st, cfg.Pipeline),
		inspector:  services.NewFeedInspector(cfg.Pipeline),
		summarizer: services.NewSummarizer(st, completer, cfg.Pipeline),
		tagger:     services.NewTagger(st, completer, catalog.Vocabulary, cfg.Pipeline),
		insights:   services.NewInsightGenerator(st, completer, cfg.Pipeline),
		uploader:   services.NewUploader(st, cfg.Pipeline),
	}
	a.automation = services.NewAutomation(st, services.AutomationOptions{
		Fetch:           a.fetcher,
		Summarize:       a.summarizer,
		Tag:             a.tagger,
		Insights:        a.insights,
		StageDelay:      cfg.Pipeline.StageDelay,
		IncludeInsights: cfg.Pipeline.IncludeInsights,
		Cache:           cache,
	})
	return a, nil
}

func (a *app) newsDeps() handlers.NewsDeps {
	return handlers.NewsDeps{
		Fetcher:    a.fetcher,
		Summarizer: a.summarizer,
		Tagger:     a.tagger,
		Insights:   a.insights,
		Uploader:   a.uploader,
	}
}

func (a *app) Close() {
	if sqlDB, err := a.conn.DB(); err == nil {
		sqlDB.Close()
	}
}
