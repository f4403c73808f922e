package services

import (
	"context"
	"fmt"
	"time"

	"technews/internal/models"
	"technews/internal/store"
	"technews/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ActionFull runs every stage in order
const ActionFull = "full"

const (
	statusCacheKey = "automation:status"
	statusCacheTTL = 30 * time.Second
)

// FetchStage is satisfied by *Fetcher
type FetchStage interface {
	FetchAll(ctx context.Context) (*FetchResult, error)
}

// BatchStage is satisfied by the summarize, tag and insight stages
type BatchStage interface {
	RunBatch(ctx context.Context) (*BatchResult, error)
}

// StageResult outcome of one stage inside a dispatch
type StageResult struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RunResult outcome of a dispatch
type RunResult struct {
	RunID   string                 `json:"runId"`
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Results map[string]StageResult `json:"results"` // keyed by stage action
	Summary map[string]int         `json:"summary,omitempty"`
}

// StatusReport today's pipeline activity
type StatusReport struct {
	Status        string           `json:"status"`
	LastChecked   time.Time        `json:"lastChecked"`
	TodayLogs     int64            `json:"todayLogs"`
	TotalArticles int64            `json:"totalArticles"`
	Automation    map[string]int64 `json:"automation"`
}

// Automation dispatches pipeline actions
type Automation struct {
	store           *store.Store
	fetch           FetchStage
	summarize       BatchStage
	tag             BatchStage
	insights        BatchStage
	cache           *utils.TTLCache
	delay           time.Duration
	includeInsights bool
	now             func() time.Time
}

// AutomationOptions wiring for NewAutomation
type AutomationOptions struct {
	Fetch           FetchStage
	Summarize       BatchStage
	Tag             BatchStage
	Insights        BatchStage
	StageDelay      time.Duration
	IncludeInsights bool
	Cache           *utils.TTLCache
}

// NewAutomation stages left nil report an error when dispatched
func NewAutomation(st *store.Store, opts AutomationOptions) *Automation {
	cache := opts.Cache
	if cache == nil {
		cache = utils.GetCache()
	}
	return &Automation{
		store:           st,
		fetch:           opts.Fetch,
		summarize:       opts.Summarize,
		tag:             opts.Tag,
		insights:        opts.Insights,
		cache:           cache,
		delay:           opts.StageDelay,
		includeInsights: opts.IncludeInsights,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// ValidAction reports whether Dispatch accepts action
func ValidAction(action string) bool {
	switch action {
	case models.ActionFetch, models.ActionSummarize, models.ActionTag, models.ActionInsights, ActionFull:
		return true
	}
	return false
}

// Dispatch runs one action. Stage failures are reported inside the result;
// only an unknown action is an error.
func (a *Automation) Dispatch(ctx context.Context, action string) (*RunResult, error) {
	if !ValidAction(action) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	defer a.cache.Delete(statusCacheKey)

	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Str("action", action).Logger()
	logger.Info().Msg("automation run started")

	run := &RunResult{RunID: runID, Action: action, Results: make(map[string]StageResult)}
	if action != ActionFull {
		res := a.runStage(ctx, action)
		run.Results[action] = res
		run.Success = res.Success
		run.Message = res.Message
		if !res.Success {
			run.Message = res.Error
		}
		logger.Info().Bool("success", run.Success).Msg("automation run finished")
		return run, nil
	}

	stages := []string{models.ActionFetch, models.ActionSummarize, models.ActionTag}
	if a.includeInsights && a.insights != nil {
		stages = append(stages, models.ActionInsights)
	}

	run.Summary = make(map[string]int)
	for i, stage := range stages {
		if i > 0 {
			if err := sleepContext(ctx, a.delay); err != nil {
				run.Results[stage] = StageResult{Action: stage, Error: err.Error()}
				break
			}
		}
		res := a.runStage(ctx, stage)
		run.Results[stage] = res
		if res.Success {
			key, n := summaryCount(res)
			run.Summary[key] = n
		}
	}

	run.Success = true
	run.Message = "Automation completed"
	logger.Info().Interface("summary", run.Summary).Msg("automation run finished")
	return run, nil
}

func (a *Automation) runStage(ctx context.Context, action string) StageResult {
	res := StageResult{Action: action}

	var (
		data any
		err  error
	)
	switch action {
	case models.ActionFetch:
		if a.fetch == nil {
			err = fmt.Errorf("stage %s is not configured", action)
			break
		}
		var r *FetchResult
		r, err = a.fetch.FetchAll(ctx)
		if err == nil {
			data = r
			res.Message = fmt.Sprintf("Fetched %d new articles from %d sources", r.Fetched, r.Sources)
		}
	default:
		stage := a.batchStage(action)
		if stage == nil {
			err = fmt.Errorf("stage %s is not configured", action)
			break
		}
		var r *BatchResult
		r, err = stage.RunBatch(ctx)
		if err == nil {
			data = r
			res.Message = fmt.Sprintf("Processed %d of %d articles", r.Processed, r.Total)
		}
	}

	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("stage failed")
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.Data = data
	return res
}

func (a *Automation) batchStage(action string) BatchStage {
	switch action {
	case models.ActionSummarize:
		return a.summarize
	case models.ActionTag:
		return a.tag
	case models.ActionInsights:
		return a.insights
	}
	return nil
}

func summaryCount(res StageResult) (string, int) {
	switch d := res.Data.(type) {
	case *FetchResult:
		return "fetched", d.Fetched
	case *BatchResult:
		switch res.Action {
		case models.ActionSummarize:
			return "summarized", d.Processed
		case models.ActionTag:
			return "tagged", d.Processed
		default:
			return "insighted", d.Processed
		}
	}
	return res.Action, 0
}

// Status reports today's activity, cached briefly
func (a *Automation) Status(ctx context.Context) (*StatusReport, error) {
	if cached, ok := a.cache.Get(statusCacheKey).(*StatusReport); ok {
		return cached, nil
	}

	now := a.now()
	today := store.StartOfDay(now)

	todayLogs, err := a.store.CountLogsSince(today)
	if err != nil {
		return nil, err
	}
	counts, err := a.store.SuccessCountsSince(today)
	if err != nil {
		return nil, err
	}
	_, total, err := a.store.ListPublishable(store.ArticleFilter{Limit: 1})
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		Status:        "running",
		LastChecked:   now,
		TodayLogs:     todayLogs,
		TotalArticles: total,
		Automation:    counts,
	}
	a.cache.Set(statusCacheKey, report, statusCacheTTL)
	return report, nil
}

// StartSchedule runs the full pipeline every interval until ctx ends
func (a *Automation) StartSchedule(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("scheduled automation enabled")
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := a.Dispatch(ctx, ActionFull); err != nil {
					log.Error().Err(err).Msg("scheduled automation failed")
				}
			}
		}
	}()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
