package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sivaangayarkanni/crm/internal/api/middleware"
	"github.com/sivaangayarkanni/crm/internal/apperr"
	"github.com/sivaangayarkanni/crm/internal/service"
)

// AnalyticsHandler handles analytics API requests
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
	}
}

// GetDashboard returns the tenant dashboard
// @Summary Dashboard
// @Tags analytics
// @Produce json
// @Success 200 {object} analytics.Dashboard
// @Router /api/v1/analytics/dashboard [get]
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.service.Dashboard(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondError(c, "Failed to build dashboard", err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// GetLeadAnalytics reports on leads created in the requested range
// @Summary Lead analytics
// @Tags analytics
// @Produce json
// @Param start_date query string false "Inclusive start (RFC 3339 or YYYY-MM-DD)"
// @Param end_date query string false "Exclusive end (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {object} analytics.LeadReport
// @Router /api/v1/analytics/leads [get]
func (h *AnalyticsHandler) GetLeadAnalytics(c *gin.Context) {
	from, to, err := dateRange(c)
	if err != nil {
		respondError(c, "Invalid date range", err)
		return
	}

	report, err := h.service.Leads(c.Request.Context(), middleware.TenantID(c), from, to)
	if err != nil {
		respondError(c, "Failed to build lead analytics", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetDealAnalytics reports on deals created in the requested range
// @Summary Deal analytics
// @Tags analytics
// @Produce json
// @Success 200 {object} analytics.DealReport
// @Router /api/v1/analytics/deals [get]
func (h *AnalyticsHandler) GetDealAnalytics(c *gin.Context) {
	from, to, err := dateRange(c)
	if err != nil {
		respondError(c, "Invalid date range", err)
		return
	}

	report, err := h.service.Deals(c.Request.Context(), middleware.TenantID(c), from, to)
	if err != nil {
		respondError(c, "Failed to build deal analytics", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func dateRange(c *gin.Context) (*time.Time, *time.Time, error) {
	from, err := parseDate(c.Query("start_date"))
	if err != nil {
		return nil, nil, err
	}
	to, err := parseDate(c.Query("end_date"))
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, apperr.Validation("start_date must be before end_date")
	}
	return from, to, nil
}
