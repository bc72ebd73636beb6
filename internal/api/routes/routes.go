package routes

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sivaangayarkanni/crm/internal/api/handlers"
	"github.com/sivaangayarkanni/crm/internal/api/middleware"
	"github.com/sivaangayarkanni/crm/internal/app"
	"golang.org/x/time/rate"
)

// Setup registers middleware and every route on router.
func Setup(router *gin.Engine, a *app.App) error {
	if err := handlers.RegisterValidators(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	limiter := middleware.NewIPRateLimiter(rate.Limit(a.Config.RateLimitRPS), a.Config.RateLimitBurst)
	router.Use(
		middleware.RequestLogger(),
		cors.New(corsConfig(a.Config.CORSOrigins)),
		limiter.RateLimit(),
	)

	leadHandler := handlers.NewLeadHandler(a.Leads)
	dealHandler := handlers.NewDealHandler(a.Deals)
	analyticsHandler := handlers.NewAnalyticsHandler(a.Analytics)
	scoringHandler := handlers.NewScoringHandler(a.Engine)
	adminHandler := handlers.NewAdminHandler(a.Stats, a.Rescore, a.Scheduler, a.HealthChecks())
	webhookHandler := handlers.NewWebhookHandler(a.Leads)

	// Health check
	router.GET("/health", adminHandler.HealthCheck)

	// Public webhooks, tenant in the body
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/lead-capture", webhookHandler.CaptureLead)
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Tenant())
	{
		leads := v1.Group("/leads")
		{
			leads.GET("", leadHandler.ListLeads)
			leads.POST("", leadHandler.CreateLead)
			leads.POST("/bulk", leadHandler.BulkUpdateLeads)
			leads.GET("/:id", leadHandler.GetLead)
			leads.PATCH("/:id", leadHandler.UpdateLead)
			leads.DELETE("/:id", leadHandler.DeleteLead)
			leads.PATCH("/:id/status", leadHandler.UpdateLeadStatus)
			leads.POST("/:id/engagement", leadHandler.RecordEngagement)
			leads.POST("/:id/rescore", leadHandler.RescoreLead)
			leads.GET("/:id/ai-insights", leadHandler.GetInsights)
			leads.GET("/:id/score-history", leadHandler.GetScoreHistory)
			leads.GET("/:id/notes", leadHandler.ListNotes)
			leads.POST("/:id/notes", leadHandler.AddNote)
		}

		deals := v1.Group("/deals")
		{
			deals.GET("", dealHandler.ListDeals)
			deals.POST("", dealHandler.CreateDeal)
			deals.GET("/pipeline", dealHandler.GetPipeline)
			deals.GET("/:id", dealHandler.GetDeal)
			deals.PATCH("/:id", dealHandler.UpdateDeal)
			deals.DELETE("/:id", dealHandler.DeleteDeal)
			deals.PATCH("/:id/stage", dealHandler.UpdateDealStage)
			deals.GET("/:id/activities", dealHandler.ListActivities)
			deals.POST("/:id/activities", dealHandler.AddActivity)
			deals.POST("/:id/rescore", dealHandler.RescoreDeal)
		}

		analytics := v1.Group("/analytics")
		{
			analytics.GET("/dashboard", analyticsHandler.GetDashboard)
			analytics.GET("/leads", analyticsHandler.GetLeadAnalytics)
			analytics.GET("/deals", analyticsHandler.GetDealAnalytics)
		}

		scoring := v1.Group("/scoring")
		{
			scoring.POST("/lead", scoringHandler.PreviewLead)
			scoring.POST("/deal", scoringHandler.PreviewDeal)
		}

		// Admin routes
		admin := v1.Group("/admin")
		{
			admin.GET("/stats", adminHandler.GetStats)
			admin.POST("/rescore", adminHandler.TriggerRescore)
		}
	}

	return nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.TenantHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
