package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"

	"technews/internal/models"
	"technews/internal/services"
	"technews/internal/store"
	"technews/internal/utils"

	"github.com/gin-gonic/gin"
)

// NewsHandler articles for readers and per article stage triggers
type NewsHandler struct {
	store      *store.Store
	fetcher    services.FetchStage
	summarizer *services.Summarizer
	tagger     *services.Tagger
	insights   *services.InsightGenerator
	uploader   *services.Uploader
}

// NewsDeps stages exposed under /api/news
type NewsDeps struct {
	Fetcher    services.FetchStage
	Summarizer *services.Summarizer
	Tagger     *services.Tagger
	Insights   *services.InsightGenerator
	Uploader   *services.Uploader
}

// NewNewsHandler serves the reader list and detail plus the stage triggers
func NewNewsHandler(st *store.Store, deps NewsDeps) *NewsHandler {
	return &NewsHandler{
		store:      st,
		fetcher:    deps.Fetcher,
		summarizer: deps.Summarizer,
		tagger:     deps.Tagger,
		insights:   deps.Insights,
		uploader:   deps.Uploader,
	}
}

// List GET /api/news
func (h *NewsHandler) List(c *gin.Context) {
	filter := store.ArticleFilter{
		Category: c.Query("category"),
		Tag:      c.Query("tag"),
		Search:   c.Query("search"),
		Featured: c.Query("featured") == "true",
		Page:     utils.IntOr(c.Query("page"), 1, 1),
		Limit:    min(utils.IntOr(c.Query("limit"), 20, 1), 100),
	}

	articles, total, err := h.store.ListPublishable(filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"articles":   articles,
		"pagination": newPagination(filter.Page, filter.Limit, total),
	})
}

type articleDetail struct {
	*models.Article
	SummaryHTML template.HTML   `json:"summaryHtml"`
	Sections    json.RawMessage `json:"sections,omitempty"`
}

// Detail GET /api/news/:id
func (h *NewsHandler) Detail(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	article, err := h.store.GetPublishable(id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	detail := articleDetail{Article: article}
	if sum := article.Summary; sum != nil {
		detail.SummaryHTML = utils.RenderMarkdown(sum.Content)
		if json.Valid([]byte(sum.KeyPoints)) {
			detail.Sections = json.RawMessage(sum.KeyPoints)
		}
	}
	c.JSON(http.StatusOK, detail)
}

// Create POST /api/news {title, content, source, category, url}
func (h *NewsHandler) Create(c *gin.Context) {
	var in services.ArticleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, badRequest("invalid request body"))
		return
	}
	article, err := h.uploader.AddArticle(in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Article created", "article": article})
}

// Summarize POST /api/news/summarize {articleId}
func (h *NewsHandler) Summarize(c *gin.Context) {
	id, err := bindArticleID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	summary, created, err := h.summarizer.Summarize(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	message := "Summary already exists"
	if created {
		message = "Summary created"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "summary": summary, "created": created})
}

// Tag POST /api/news/tag {articleId}
func (h *NewsHandler) Tag(c *gin.Context) {
	id, err := bindArticleID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	res, err := h.tagger.Tag(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

// Insights POST /api/news/insights {articleId}
func (h *NewsHandler) Insights(c *gin.Context) {
	id, err := bindArticleID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	res, err := h.insights.Generate(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

// Batch GET on the stage paths runs one batch of that stage
func (h *NewsHandler) Batch(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var run func(context.Context) (*services.BatchResult, error)
		switch action {
		case models.ActionSummarize:
			run = h.summarizer.RunBatch
		case models.ActionTag:
			run = h.tagger.RunBatch
		case models.ActionInsights:
			run = h.insights.RunBatch
		default:
			abortWithError(c, services.ErrInvalidAction)
			return
		}

		res, err := run(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "action": action, "data": res})
	}
}

// Fetch POST /api/news/fetch
func (h *NewsHandler) Fetch(c *gin.Context) {
	res, err := h.fetcher.FetchAll(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}
