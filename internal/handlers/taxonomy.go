package handlers

import (
	"net/http"

	"technews/internal/store"
	"technews/internal/utils"

	"github.com/gin-gonic/gin"
)

// TaxonomyHandler categories and tags with article counts
type TaxonomyHandler struct {
	store *store.Store
}

// NewTaxonomyHandler read only
func NewTaxonomyHandler(st *store.Store) *TaxonomyHandler {
	return &TaxonomyHandler{store: st}
}

// Categories GET /api/categories
func (h *TaxonomyHandler) Categories(c *gin.Context) {
	cats, err := h.store.ListCategories()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

// Tags GET /api/tags?limit=
func (h *TaxonomyHandler) Tags(c *gin.Context) {
	tags, err := h.store.ListTags(min(utils.IntOr(c.Query("limit"), 50, 1), 500))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}
