// Package main provides the course chatbot server entry point.
package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gmaidana/cursos-chatbot-go/internal/catalog"
	"github.com/gmaidana/cursos-chatbot-go/internal/chat"
	"github.com/gmaidana/cursos-chatbot-go/internal/config"
	"github.com/gmaidana/cursos-chatbot-go/internal/rag"
	"github.com/gmaidana/cursos-chatbot-go/internal/storage"
)

// setupRoutes configures all HTTP routes
func setupRoutes(router *gin.Engine, handler *chat.Handler, db *storage.DB, cat *catalog.Catalog, index *rag.Index, registry *prometheus.Registry, cfg *config.Config) {
	// Root endpoint - redirect to the project page
	rootHandler := func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "https://github.com/gmaidana/cursos-chatbot-go")
	}
	router.GET("/", rootHandler)
	router.HEAD("/", rootHandler)

	// Liveness probe - only that the process is running, never dependencies
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/healthz", healthHandler)
	router.HEAD("/healthz", healthHandler)

	// Readiness probe - turn log reachable plus catalog/index counts
	readyHandler := func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), config.ReadyCheck)
		defer cancel()

		if err := db.Ready(checkCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}

		turns, _ := db.CountTurns(checkCtx)
		c.JSON(http.StatusOK, gin.H{
			"status":   "ready",
			"database": "connected",
			"catalog": gin.H{
				"courses":      cat.Len(),
				"indexed_docs": index.Count(),
			},
			"audit": gin.H{
				"turns": turns,
			},
		})
	}
	router.GET("/ready", readyHandler)
	router.HEAD("/ready", readyHandler)

	// Chat endpoint and the neutral course reference page
	router.POST("/api/chat", handler.Chat)
	router.GET("/curso/:id", handler.CourseDetail)

	// Prometheus metrics endpoint, behind Basic Auth when a password is set
	metricsHandler := gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if cfg.MetricsPassword != "" {
		authorized := router.Group("/", gin.BasicAuth(gin.Accounts{
			cfg.MetricsUsername: cfg.MetricsPassword,
		}))
		authorized.GET("/metrics", metricsHandler)
	} else {
		router.GET("/metrics", metricsHandler)
	}
}
