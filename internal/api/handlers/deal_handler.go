package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sivaangayarkanni/crm/internal/api/middleware"
	"github.com/sivaangayarkanni/crm/internal/models"
	"github.com/sivaangayarkanni/crm/internal/repository"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"github.com/sivaangayarkanni/crm/internal/service"
)

const defaultActivityLimit = 50

// DealHandler handles deal API requests
type DealHandler struct {
	service *service.DealService
}

// NewDealHandler creates a new deal handler
func NewDealHandler(service *service.DealService) *DealHandler {
	return &DealHandler{
		service: service,
	}
}

// CreateDealRequest represents the request to create a deal
type CreateDealRequest struct {
	Title             string            `json:"title" binding:"required,max=200"`
	Description       string            `json:"description" binding:"omitempty,max=5000"`
	Value             float64           `json:"value" binding:"gte=0"`
	Currency          string            `json:"currency" binding:"omitempty,len=3"`
	Pipeline          string            `json:"pipeline" binding:"omitempty,max=64"`
	Stage             scoring.DealStage `json:"stage" binding:"omitempty,deal_stage"`
	Probability       *int              `json:"probability" binding:"omitempty,min=0,max=100"`
	Status            models.DealStatus `json:"status" binding:"omitempty,deal_status"`
	Company           string            `json:"company" binding:"omitempty,max=200"`
	LeadID            *string           `json:"lead_id" binding:"omitempty,max=36"`
	Tags              []string          `json:"tags"`
	ExpectedCloseDate *time.Time        `json:"expected_close_date"`
}

// UpdateDealRequest represents a partial deal update
type UpdateDealRequest struct {
	Title             *string            `json:"title" binding:"omitempty,min=1,max=200"`
	Description       *string            `json:"description" binding:"omitempty,max=5000"`
	Value             *float64           `json:"value" binding:"omitempty,gte=0"`
	Currency          *string            `json:"currency" binding:"omitempty,len=3"`
	Pipeline          *string            `json:"pipeline" binding:"omitempty,max=64"`
	Stage             *scoring.DealStage `json:"stage" binding:"omitempty,deal_stage"`
	Probability       *int               `json:"probability" binding:"omitempty,min=0,max=100"`
	Status            *models.DealStatus `json:"status" binding:"omitempty,deal_status"`
	Company           *string            `json:"company" binding:"omitempty,max=200"`
	Tags              *[]string          `json:"tags"`
	ExpectedCloseDate *time.Time         `json:"expected_close_date"`
}

// UpdateDealStageRequest represents a pipeline stage transition
type UpdateDealStageRequest struct {
	Stage scoring.DealStage `json:"stage" binding:"required,deal_stage"`
}

// AddActivityRequest represents an activity logged on a deal
type AddActivityRequest struct {
	Type            models.ActivityType `json:"type" binding:"required,activity_type"`
	Description     string              `json:"description" binding:"omitempty,max=5000"`
	Outcome         string              `json:"outcome" binding:"omitempty,max=500"`
	DurationMinutes int                 `json:"duration_minutes" binding:"omitempty,min=0"`
	ScheduledAt     *time.Time          `json:"scheduled_at"`
}

// ActivityResponse is the result of logging an activity
type ActivityResponse struct {
	Deal     *models.Deal         `json:"deal"`
	Activity *models.DealActivity `json:"activity"`
}

// ListDealsQuery represents the deal listing query string
type ListDealsQuery struct {
	Page      int               `form:"page" binding:"omitempty,min=1"`
	Limit     int               `form:"limit" binding:"omitempty,min=1,max=100"`
	Status    models.DealStatus `form:"status" binding:"omitempty,deal_status"`
	Stage     scoring.DealStage `form:"stage" binding:"omitempty,deal_stage"`
	Pipeline  string            `form:"pipeline"`
	MinValue  *float64          `form:"min_value" binding:"omitempty,gte=0"`
	MaxValue  *float64          `form:"max_value" binding:"omitempty,gte=0"`
	Search    string            `form:"search" binding:"omitempty,max=100"`
	SortBy    string            `form:"sort_by"`
	SortOrder string            `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// ListDeals lists the tenant's deals
// @Summary List deals
// @Tags deals
// @Produce json
// @Success 200 {object} ListResponse
// @Router /api/v1/deals [get]
func (h *DealHandler) ListDeals(c *gin.Context) {
	var q ListDealsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	page := repository.Page{Page: q.Page, Limit: q.Limit}.Normalize()
	deals, total, err := h.service.List(c.Request.Context(), middleware.TenantID(c), repository.DealFilter{
		Status:    q.Status,
		Stage:     q.Stage,
		Pipeline:  q.Pipeline,
		MinValue:  q.MinValue,
		MaxValue:  q.MaxValue,
		Search:    q.Search,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      page,
	})
	if err != nil {
		respondError(c, "Failed to list deals", err)
		return
	}

	c.JSON(http.StatusOK, newListResponse(deals, total, page.Page, page.Limit))
}

// CreateDeal creates and scores a deal
// @Summary Create deal
// @Tags deals
// @Accept json
// @Produce json
// @Param request body CreateDealRequest true "Deal"
// @Success 201 {object} models.Deal
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/deals [post]
func (h *DealHandler) CreateDeal(c *gin.Context) {
	var req CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	deal, err := h.service.Create(c.Request.Context(), middleware.TenantID(c), service.CreateDealInput{
		Title:             req.Title,
		Description:       req.Description,
		Value:             req.Value,
		Currency:          req.Currency,
		Pipeline:          req.Pipeline,
		Stage:             req.Stage,
		Probability:       req.Probability,
		Status:            req.Status,
		Company:           req.Company,
		LeadID:            req.LeadID,
		Tags:              req.Tags,
		ExpectedCloseDate: req.ExpectedCloseDate,
	})
	if err != nil {
		respondError(c, "Failed to create deal", err)
		return
	}

	c.JSON(http.StatusCreated, deal)
}

// GetPipeline returns the open pipeline grouped by stage
// @Summary Pipeline view
// @Tags deals
// @Produce json
// @Param pipeline query string false "Pipeline name"
// @Success 200 {object} service.PipelineView
// @Router /api/v1/deals/pipeline [get]
func (h *DealHandler) GetPipeline(c *gin.Context) {
	view, err := h.service.Pipeline(c.Request.Context(), middleware.TenantID(c), c.Query("pipeline"))
	if err != nil {
		respondError(c, "Failed to retrieve pipeline", err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetDeal retrieves one deal
// @Summary Get deal
// @Tags deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 200 {object} models.Deal
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/deals/{id} [get]
func (h *DealHandler) GetDeal(c *gin.Context) {
	deal, err := h.service.Get(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to retrieve deal", err)
		return
	}

	c.JSON(http.StatusOK, deal)
}

// UpdateDeal applies a partial update and rescores when needed
// @Summary Update deal
// @Tags deals
// @Accept json
// @Produce json
// @Param id path string true "Deal ID"
// @Param request body UpdateDealRequest true "Changes"
// @Success 200 {object} models.Deal
// @Router /api/v1/deals/{id} [patch]
func (h *DealHandler) UpdateDeal(c *gin.Context) {
	var req UpdateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	deal, err := h.service.Update(c.Request.Context(), middleware.TenantID(c), c.Param("id"), service.UpdateDealInput{
		Title:             req.Title,
		Description:       req.Description,
		Value:             req.Value,
		Currency:          req.Currency,
		Pipeline:          req.Pipeline,
		Stage:             req.Stage,
		Probability:       req.Probability,
		Status:            req.Status,
		Company:           req.Company,
		Tags:              req.Tags,
		ExpectedCloseDate: req.ExpectedCloseDate,
	})
	if err != nil {
		respondError(c, "Failed to update deal", err)
		return
	}

	c.JSON(http.StatusOK, deal)
}

// UpdateDealStage moves a deal to another stage
// @Summary Update deal stage
// @Tags deals
// @Accept json
// @Produce json
// @Param id path string true "Deal ID"
// @Param request body UpdateDealStageRequest true "Stage"
// @Success 200 {object} models.Deal
// @Router /api/v1/deals/{id}/stage [patch]
func (h *DealHandler) UpdateDealStage(c *gin.Context) {
	var req UpdateDealStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	deal, err := h.service.UpdateStage(c.Request.Context(), middleware.TenantID(c), c.Param("id"), req.Stage)
	if err != nil {
		respondError(c, "Failed to update deal stage", err)
		return
	}

	c.JSON(http.StatusOK, deal)
}

// AddActivity logs an activity on a deal
// @Summary Add deal activity
// @Tags deals
// @Accept json
// @Produce json
// @Param id path string true "Deal ID"
// @Param request body AddActivityRequest true "Activity"
// @Success 201 {object} ActivityResponse
// @Router /api/v1/deals/{id}/activities [post]
func (h *DealHandler) AddActivity(c *gin.Context) {
	var req AddActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	deal, activity, err := h.service.AddActivity(c.Request.Context(), middleware.TenantID(c), c.Param("id"), service.AddActivityInput{
		Type:            req.Type,
		Description:     req.Description,
		Outcome:         req.Outcome,
		DurationMinutes: req.DurationMinutes,
		ScheduledAt:     req.ScheduledAt,
	})
	if err != nil {
		respondError(c, "Failed to add deal activity", err)
		return
	}

	c.JSON(http.StatusCreated, ActivityResponse{Deal: deal, Activity: activity})
}

// ListActivities returns the newest activities of a deal
// @Summary List deal activities
// @Tags deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 200 {array} models.DealActivity
// @Router /api/v1/deals/{id}/activities [get]
func (h *DealHandler) ListActivities(c *gin.Context) {
	limit := queryInt(c, "limit", defaultActivityLimit)

	activities, err := h.service.Activities(c.Request.Context(), middleware.TenantID(c), c.Param("id"), limit)
	if err != nil {
		respondError(c, "Failed to list deal activities", err)
		return
	}

	c.JSON(http.StatusOK, activities)
}

// RescoreDeal recomputes a deal prediction
// @Summary Rescore deal
// @Tags deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 200 {object} models.Deal
// @Router /api/v1/deals/{id}/rescore [post]
func (h *DealHandler) RescoreDeal(c *gin.Context) {
	deal, err := h.service.Rescore(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to rescore deal", err)
		return
	}

	c.JSON(http.StatusOK, deal)
}

// DeleteDeal soft-deletes a deal
// @Summary Delete deal
// @Tags deals
// @Param id path string true "Deal ID"
// @Success 204
// @Router /api/v1/deals/{id} [delete]
func (h *DealHandler) DeleteDeal(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.TenantID(c), c.Param("id")); err != nil {
		respondError(c, "Failed to delete deal", err)
		return
	}

	c.Status(http.StatusNoContent)
}
