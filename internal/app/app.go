// Package app wires configuration into a running set of repositories and
// services shared by the HTTP server and the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sivaangayarkanni/crm/internal/api/handlers"
	"github.com/sivaangayarkanni/crm/internal/cache"
	"github.com/sivaangayarkanni/crm/internal/config"
	"github.com/sivaangayarkanni/crm/internal/database"
	"github.com/sivaangayarkanni/crm/internal/repository"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"github.com/sivaangayarkanni/crm/internal/service"
	"github.com/sivaangayarkanni/crm/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds every long-lived component.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Cache  cache.Cache

	Engine   *scoring.Engine
	LeadRepo *repository.LeadRepository
	DealRepo *repository.DealRepository
	Stats    *repository.StatsRepository

	Leads     *service.LeadService
	Deals     *service.DealService
	Analytics *service.AnalyticsService
	Rescore   *service.RescoreService
	Scheduler *service.Scheduler
}

// New opens the database and cache named by cfg and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	var c cache.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		logger.Info("Analytics cache enabled", zap.Duration("ttl", cfg.AnalyticsCacheTTL))
		c = redisCache
	}

	return Assemble(cfg, db, c), nil
}

// Assemble builds the services on top of an already open database and cache.
func Assemble(cfg *config.Config, db *gorm.DB, c cache.Cache) *App {
	a := &App{
		Config:   cfg,
		DB:       db,
		Cache:    c,
		Engine:   scoring.NewEngine(),
		LeadRepo: repository.NewLeadRepository(db),
		DealRepo: repository.NewDealRepository(db),
		Stats:    repository.NewStatsRepository(db),
	}

	a.Analytics = service.NewAnalyticsService(a.LeadRepo, a.DealRepo, c, cfg.AnalyticsCacheTTL)
	a.Leads = service.NewLeadService(a.LeadRepo, a.Engine, a.Analytics, cfg.PhoneRegion)
	a.Deals = service.NewDealService(a.DealRepo, a.Engine, a.Analytics)
	a.Rescore = service.NewRescoreService(a.LeadRepo, a.DealRepo, a.Leads, a.Deals, a.Analytics, cfg.RescoreWorkers, cfg.RescoreBatchSize)
	a.Scheduler = service.NewScheduler(a.Rescore)
	return a
}

// HealthChecks returns the component checks served by /health.
func (a *App) HealthChecks() map[string]handlers.HealthCheck {
	return map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, a.DB) },
		"cache":    a.Cache.Ping,
	}
}

// Close releases the cache and the database.
func (a *App) Close() error {
	return errors.Join(a.Cache.Close(), database.Close(a.DB))
}
