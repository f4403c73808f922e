package router

import (
	"technews/internal/config"
	"technews/internal/handlers"
	"technews/internal/middleware"
	"technews/internal/models"
	"technews/internal/services"
	"technews/internal/store"
	"technews/internal/utils"

	"github.com/gin-gonic/gin"
)

// Deps everything the routes are built from
type Deps struct {
	Server     config.ServerConfig
	Store      *store.Store
	Automation *services.Automation
	News       handlers.NewsDeps
	Inspector  *services.FeedInspector
	Catalog    *services.Catalog
	Cache      *utils.TTLCache
}

// RegisterRoutes mounts the public reader API and the admin protected stage
// and source management endpoints
func RegisterRoutes(r *gin.Engine, d Deps) {
	automationHandler := handlers.NewAutomationHandler(d.Automation, d.Store)
	newsHandler := handlers.NewNewsHandler(d.Store, d.News)
	sourceHandler := handlers.NewSourceHandler(d.Store, d.Inspector, d.Catalog)
	taxonomyHandler := handlers.NewTaxonomyHandler(d.Store)
	feedHandler := handlers.NewFeedHandler(d.Store, d.Cache, d.Server)

	admin := middleware.AdminRequired(d.Server.AdminTokenHash)

	r.GET("/health", handlers.Health)
	r.GET("/feed.xml", feedHandler.RSS)

	api := r.Group("/api")
	{
		// reader side
		api.GET("/news", newsHandler.List)
		api.GET("/news/:id", newsHandler.Detail)
		api.GET("/categories", taxonomyHandler.Categories)
		api.GET("/tags", taxonomyHandler.Tags)
		api.GET("/sources", sourceHandler.List)
		api.POST("/sources/test", sourceHandler.Test)

		api.GET("/automation", automationHandler.Status)
		api.GET("/automation/logs", automationHandler.Logs)
	}

	protected := api.Group("")
	protected.Use(admin)
	{
		protected.POST("/automation", automationHandler.Run)

		protected.POST("/news", newsHandler.Create)
		protected.POST("/news/fetch", newsHandler.Fetch)
		protected.POST("/news/summarize", newsHandler.Summarize)
		protected.GET("/news/summarize", newsHandler.Batch(models.ActionSummarize))
		protected.POST("/news/tag", newsHandler.Tag)
		protected.GET("/news/tag", newsHandler.Batch(models.ActionTag))
		protected.POST("/news/insights", newsHandler.Insights)
		protected.GET("/news/insights", newsHandler.Batch(models.ActionInsights))

		protected.POST("/sources", sourceHandler.Create)
		protected.PATCH("/sources/:id", sourceHandler.Update)
		protected.DELETE("/sources/:id", sourceHandler.Delete)
		protected.POST("/sources/initialize", sourceHandler.Initialize)
	}
}
