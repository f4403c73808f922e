package handlers

import (
	"net/http"
	"strings"
	"time"

	"technews/internal/models"
	"technews/internal/services"
	"technews/internal/store"
	"technews/internal/utils"

	"github.com/gin-gonic/gin"
)

// AutomationHandler pipeline dispatch over HTTP
type AutomationHandler struct {
	automation *services.Automation
	store      *store.Store
}

// NewAutomationHandler dispatch, status and the processing log
func NewAutomationHandler(a *services.Automation, st *store.Store) *AutomationHandler {
	return &AutomationHandler{automation: a, store: st}
}

type dispatchRequest struct {
	Action string `json:"action"`
}

// Run POST /api/automation
func (h *AutomationHandler) Run(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Action == "" {
		abortWithError(c, badRequest("action is required"))
		return
	}

	run, err := h.automation.Dispatch(c.Request.Context(), req.Action)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// Status GET /api/automation
func (h *AutomationHandler) Status(c *gin.Context) {
	report, err := h.automation.Status(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Logs GET /api/automation/logs?date=2006-01-02&action=&status=&page=&limit=
// Without date every log is listed and the statistics cover all time.
func (h *AutomationHandler) Logs(c *gin.Context) {
	filter := store.LogFilter{
		Action: c.Query("action"),
		Status: c.Query("status"),
		Page:   utils.IntOr(c.Query("page"), 1, 1),
		Limit:  min(utils.IntOr(c.Query("limit"), 100, 1), 500),
	}

	var since, until time.Time
	date := ""
	if raw := c.Query("date"); raw != "" {
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			abortWithError(c, badRequest("date must be YYYY-MM-DD"))
			return
		}
		filter.Day = day
		since = store.StartOfDay(day)
		until = since.AddDate(0, 0, 1)
		date = since.Format(time.DateOnly)
	}

	logs, total, err := h.store.ListLogs(filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	stats, err := h.store.LogStatistics(since, until)
	if err != nil {
		abortWithError(c, err)
		return
	}

	summary := map[string]int64{
		models.StatusSuccess: 0,
		models.StatusError:   0,
		models.StatusPending: 0,
	}
	for key, n := range stats {
		status := key[strings.LastIndexByte(key, '_')+1:]
		summary[status] += n
	}

	c.JSON(http.StatusOK, gin.H{
		"date":       date,
		"logs":       logs,
		"statistics": stats,
		"summary":    summary,
		"pagination": newPagination(filter.Page, filter.Limit, total),
	})
}
