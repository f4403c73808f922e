package handlers

import (
	"net/http"
	"strings"

	"technews/internal/models"
	"technews/internal/services"
	"technews/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SourceHandler feed source management
type SourceHandler struct {
	store     *store.Store
	inspector *services.FeedInspector
	catalog   *services.Catalog
}

// NewSourceHandler inspector fills source details from the feed itself
func NewSourceHandler(st *store.Store, inspector *services.FeedInspector, catalog *services.Catalog) *SourceHandler {
	return &SourceHandler{store: st, inspector: inspector, catalog: catalog}
}

// List GET /api/sources
func (h *SourceHandler) List(c *gin.Context) {
	sources, err := h.store.ListSources()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources, "total": len(sources)})
}

type createSourceRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	FeedURL     string `json:"rssUrl"`
	Description string `json:"description"`
	CategoryID  *uint  `json:"categoryId"`
	Category    string `json:"category"`
}

// Create POST /api/sources. Missing name, home page and description are
// taken from the feed itself.
func (h *SourceHandler) Create(c *gin.Context) {
	var req createSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, badRequest("invalid request body"))
		return
	}
	req.FeedURL = strings.TrimSpace(req.FeedURL)
	if req.FeedURL == "" {
		abortWithError(c, services.ErrMissingURL)
		return
	}

	src := &models.Source{
		Name:        strings.TrimSpace(req.Name),
		URL:         strings.TrimSpace(req.URL),
		FeedURL:     req.FeedURL,
		Description: req.Description,
		IsActive:    true,
		CategoryID:  req.CategoryID,
	}
	if _, err := h.inspector.FillSource(c.Request.Context(), src); err != nil {
		abortWithError(c, badRequest("feed could not be read: "+err.Error()))
		return
	}
	if src.Name == "" {
		abortWithError(c, badRequest("name is required"))
		return
	}
	if src.CategoryID == nil && req.Category != "" {
		cat, err := h.store.UpsertCategory(&models.Category{Name: req.Category})
		if err != nil {
			abortWithError(c, err)
			return
		}
		src.CategoryID = &cat.ID
	}

	if err := h.store.CreateSource(src); err != nil {
		abortWithError(c, err)
		return
	}
	log.Info().Str("source", src.Name).Str("feed", src.FeedURL).Msg("source registered")
	c.JSON(http.StatusCreated, src)
}

type updateSourceRequest struct {
	IsActive *bool `json:"isActive"`
}

// Update PATCH /api/sources/:id {isActive}
func (h *SourceHandler) Update(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	var req updateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		abortWithError(c, badRequest("isActive is required"))
		return
	}

	src, err := h.store.SetSourceActive(id, *req.IsActive)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, src)
}

// Delete DELETE /api/sources/:id
func (h *SourceHandler) Delete(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.store.DeleteSource(id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Initialize POST /api/sources/initialize loads the catalog
func (h *SourceHandler) Initialize(c *gin.Context) {
	res, err := h.catalog.InitializeSources(h.store)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if _, err := h.catalog.SeedTags(h.store); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

type testSourceRequest struct {
	URL string `json:"url"`
}

// Test POST /api/sources/test {url}. An unreadable feed is a normal
// result, not a request error.
func (h *SourceHandler) Test(c *gin.Context) {
	var req testSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		abortWithError(c, services.ErrMissingURL)
		return
	}

	report, err := h.inspector.Inspect(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "feed": report})
}
