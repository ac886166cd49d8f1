// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/restock/internal/api/handlers"
	"github.com/andresuchdata/restock/internal/api/middleware"
	"github.com/andresuchdata/restock/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	ReportService *service.ReportService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.ReportService != nil {
		reportHandler := handlers.NewReportHandler(services.ReportService)

		reportGroup := apiGroup.Group("/reports")
		{
			reportGroup.POST("", reportHandler.CreateReport)
			reportGroup.POST("/fetch", reportHandler.FetchReport)
			reportGroup.GET("/:id", reportHandler.GetView)
			reportGroup.GET("/:id/full", reportHandler.GetReport)
			reportGroup.GET("/:id/options", reportHandler.GetFilterOptions)
			reportGroup.GET("/:id/urgent", reportHandler.GetMostUrgent)
			reportGroup.GET("/:id/transfers", reportHandler.GetTransfers)
			reportGroup.DELETE("/:id", reportHandler.DeleteReport)
		}

		runGroup := apiGroup.Group("/runs")
		{
			runGroup.GET("", reportHandler.ListRuns)
			runGroup.GET("/:id", reportHandler.GetRun)
		}

		apiGroup.POST("/scenarios", reportHandler.ComputeScenario)
		apiGroup.GET("/methods", reportHandler.GetMethods)
		apiGroup.GET("/thresholds", reportHandler.GetThresholds)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
