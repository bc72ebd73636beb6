package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sivaangayarkanni/crm/internal/apperr"
	"github.com/sivaangayarkanni/crm/internal/repository"
	"github.com/sivaangayarkanni/crm/internal/service"
	"github.com/sivaangayarkanni/crm/pkg/logger"
	"go.uber.org/zap"
)

// staleScoreAge is how old a stored score may get before stats count it stale.
const staleScoreAge = 24 * time.Hour

// HealthCheck reports whether one component answers.
type HealthCheck func(ctx context.Context) error

// AdminHandler handles operational requests
type AdminHandler struct {
	stats     *repository.StatsRepository
	rescore   *service.RescoreService
	scheduler *service.Scheduler
	checks    map[string]HealthCheck
}

// NewAdminHandler creates a new admin handler. checks are run by HealthCheck
// under their names.
func NewAdminHandler(stats *repository.StatsRepository, rescore *service.RescoreService, scheduler *service.Scheduler, checks map[string]HealthCheck) *AdminHandler {
	return &AdminHandler{
		stats:     stats,
		rescore:   rescore,
		scheduler: scheduler,
		checks:    checks,
	}
}

// TriggerRescore starts a rescore sweep. With wait=true the sweep runs inside
// the request and its statistics are returned. Either way a sweep already in
// progress is a conflict.
// @Summary Rescore everything
// @Tags admin
// @Produce json
// @Param wait query bool false "Run synchronously"
// @Success 200 {object} service.RescoreStats
// @Success 202 {object} map[string]string
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/admin/rescore [post]
func (h *AdminHandler) TriggerRescore(c *gin.Context) {
	if c.Query("wait") != "true" {
		if err := h.scheduler.RunNow(); err != nil {
			respondError(c, "Rescore already running", apperr.Conflict(err.Error()))
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "rescore started"})
		return
	}

	stats, err := h.rescore.RescoreAll(c.Request.Context())
	if errors.Is(err, service.ErrRescoreRunning) {
		respondError(c, "Rescore already running", apperr.Conflict(err.Error()))
		return
	}
	if err != nil {
		respondError(c, "Failed to rescore", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetStats retrieves scoring statistics across tenants
// @Summary Get service statistics
// @Tags admin
// @Produce json
// @Success 200 {object} repository.Stats
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/admin/stats [get]
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.Get(c.Request.Context(), time.Now().UTC(), staleScoreAge)
	if err != nil {
		respondError(c, "Failed to retrieve statistics", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// HealthCheck performs health checks
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *AdminHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	allHealthy := true
	components := make(map[string]bool, len(names))
	for _, name := range names {
		err := h.checks[name](ctx)
		components[name] = err == nil
		if err != nil {
			allHealthy = false
			logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, HealthResponse{
		Status:     map[bool]string{true: "healthy", false: "unhealthy"}[allHealthy],
		Components: components,
	})
}
