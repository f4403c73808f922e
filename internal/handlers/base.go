package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"technews/internal/services"
	"technews/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// errBadRequest marks request validation failures
var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

type requestError struct{ msg string }

func (e *requestError) Error() string        { return e.msg }
func (e *requestError) Is(target error) bool { return target == errBadRequest }

// statusFor maps a domain error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, services.ErrInvalidAction),
		errors.Is(err, services.ErrNoSummary),
		errors.Is(err, services.ErrMissingURL),
		errors.Is(err, services.ErrMissingFields),
		errors.Is(err, store.ErrDuplicateURL):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrClaimed),
		errors.Is(err, store.ErrSourceInUse),
		errors.Is(err, store.ErrDuplicateSource):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// abortWithError writes {"error": ...} with the mapped status
func abortWithError(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func paramID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid id")
	}
	return uint(id), nil
}

type articleRequest struct {
	ArticleID uint `json:"articleId"`
}

func bindArticleID(c *gin.Context) (uint, error) {
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ArticleID == 0 {
		return 0, badRequest("articleId is required")
	}
	return req.ArticleID, nil
}

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func newPagination(page, limit int, total int64) pagination {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// Health liveness probe
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
