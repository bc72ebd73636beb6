package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sivaangayarkanni/crm/internal/api/middleware"
	"github.com/sivaangayarkanni/crm/internal/models"
	"github.com/sivaangayarkanni/crm/internal/repository"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"github.com/sivaangayarkanni/crm/internal/service"
)

// LeadHandler handles lead API requests
type LeadHandler struct {
	service *service.LeadService
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(service *service.LeadService) *LeadHandler {
	return &LeadHandler{
		service: service,
	}
}

// CreateLeadRequest represents the request to create a lead
type CreateLeadRequest struct {
	Name     string             `json:"name" binding:"required,max=200"`
	Email    string             `json:"email" binding:"omitempty,max=254"`
	Phone    string             `json:"phone" binding:"omitempty,max=32"`
	Company  string             `json:"company" binding:"omitempty,max=200"`
	JobTitle string             `json:"job_title" binding:"omitempty,max=200"`
	Source   scoring.LeadSource `json:"source" binding:"omitempty,lead_source"`
	Status   scoring.LeadStatus `json:"status" binding:"omitempty,lead_status"`
	Priority scoring.Priority   `json:"priority" binding:"omitempty,lead_priority"`
	Tags     []string           `json:"tags"`
}

// UpdateLeadRequest represents a partial lead update
type UpdateLeadRequest struct {
	Name     *string             `json:"name" binding:"omitempty,min=1,max=200"`
	Email    *string             `json:"email" binding:"omitempty,max=254"`
	Phone    *string             `json:"phone" binding:"omitempty,max=32"`
	Company  *string             `json:"company" binding:"omitempty,max=200"`
	JobTitle *string             `json:"job_title" binding:"omitempty,max=200"`
	Source   *scoring.LeadSource `json:"source" binding:"omitempty,lead_source"`
	Status   *scoring.LeadStatus `json:"status" binding:"omitempty,lead_status"`
	Priority *scoring.Priority   `json:"priority" binding:"omitempty,lead_priority"`
	Tags     *[]string           `json:"tags"`
}

// UpdateLeadStatusRequest represents a lead status transition
type UpdateLeadStatusRequest struct {
	Status scoring.LeadStatus `json:"status" binding:"required,lead_status"`
}

// EngagementRequest represents a tracked interaction with a lead
type EngagementRequest struct {
	Event models.EngagementEvent `json:"event" binding:"required,engagement_event"`
}

// BulkUpdateLeadsRequest applies one partial update to several leads
type BulkUpdateLeadsRequest struct {
	LeadIDs []string          `json:"lead_ids" binding:"required,min=1,max=100,dive,required"`
	Updates UpdateLeadRequest `json:"updates"`
}

// AddNoteRequest represents a new lead note
type AddNoteRequest struct {
	Content string          `json:"content" binding:"required,max=5000"`
	Type    models.NoteType `json:"type" binding:"omitempty,note_type"`
}

// ListLeadsQuery represents the lead listing query string
type ListLeadsQuery struct {
	Page      int                `form:"page" binding:"omitempty,min=1"`
	Limit     int                `form:"limit" binding:"omitempty,min=1,max=100"`
	Status    scoring.LeadStatus `form:"status" binding:"omitempty,lead_status"`
	Source    scoring.LeadSource `form:"source" binding:"omitempty,lead_source"`
	Grade     scoring.Grade      `form:"grade" binding:"omitempty,oneof=cold cool warm hot"`
	MinScore  *int               `form:"min_score" binding:"omitempty,min=0,max=100"`
	Search    string             `form:"search" binding:"omitempty,max=100"`
	SortBy    string             `form:"sort_by"`
	SortOrder string             `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// ListLeads lists the tenant's leads
// @Summary List leads
// @Tags leads
// @Produce json
// @Param X-Tenant-ID header string true "Tenant"
// @Success 200 {object} ListResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/leads [get]
func (h *LeadHandler) ListLeads(c *gin.Context) {
	var q ListLeadsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	page := repository.Page{Page: q.Page, Limit: q.Limit}.Normalize()
	leads, total, err := h.service.List(c.Request.Context(), middleware.TenantID(c), repository.LeadFilter{
		Status:    q.Status,
		Source:    q.Source,
		Grade:     q.Grade,
		MinScore:  q.MinScore,
		Search:    q.Search,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      page,
	})
	if err != nil {
		respondError(c, "Failed to list leads", err)
		return
	}

	c.JSON(http.StatusOK, newListResponse(leads, total, page.Page, page.Limit))
}

// CreateLead creates and scores a lead
// @Summary Create lead
// @Tags leads
// @Accept json
// @Produce json
// @Param request body CreateLeadRequest true "Lead"
// @Success 201 {object} models.Lead
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/leads [post]
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var req CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	lead, err := h.service.Create(c.Request.Context(), middleware.TenantID(c), service.CreateLeadInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Company:  req.Company,
		JobTitle: req.JobTitle,
		Source:   req.Source,
		Status:   req.Status,
		Priority: req.Priority,
		Tags:     req.Tags,
	})
	if err != nil {
		respondError(c, "Failed to create lead", err)
		return
	}

	c.JSON(http.StatusCreated, lead)
}

// GetLead retrieves one lead
// @Summary Get lead
// @Tags leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} models.Lead
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/leads/{id} [get]
func (h *LeadHandler) GetLead(c *gin.Context) {
	lead, err := h.service.Get(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to retrieve lead", err)
		return
	}

	c.JSON(http.StatusOK, lead)
}

// UpdateLead applies a partial update and rescores when needed
// @Summary Update lead
// @Tags leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param request body UpdateLeadRequest true "Changes"
// @Success 200 {object} models.Lead
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/leads/{id} [patch]
func (h *LeadHandler) UpdateLead(c *gin.Context) {
	var req UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	lead, err := h.service.Update(c.Request.Context(), middleware.TenantID(c), c.Param("id"), req.input())
	if err != nil {
		respondError(c, "Failed to update lead", err)
		return
	}

	c.JSON(http.StatusOK, lead)
}

// BulkUpdateLeads applies one partial update to several leads
// @Summary Bulk update leads
// @Tags leads
// @Accept json
// @Produce json
// @Param request body BulkUpdateLeadsRequest true "Leads and changes"
// @Success 200 {object} service.BulkUpdateResult
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/leads/bulk [post]
func (h *LeadHandler) BulkUpdateLeads(c *gin.Context) {
	var req BulkUpdateLeadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.service.BulkUpdate(c.Request.Context(), middleware.TenantID(c), req.LeadIDs, req.Updates.input())
	if err != nil {
		respondError(c, "Failed to bulk update leads", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateLeadStatus moves a lead through its lifecycle
// @Summary Update lead status
// @Tags leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param request body UpdateLeadStatusRequest true "Status"
// @Success 200 {object} models.Lead
// @Router /api/v1/leads/{id}/status [patch]
func (h *LeadHandler) UpdateLeadStatus(c *gin.Context) {
	var req UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	lead, err := h.service.UpdateStatus(c.Request.Context(), middleware.TenantID(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, "Failed to update lead status", err)
		return
	}

	c.JSON(http.StatusOK, lead)
}

// RecordEngagement counts an interaction with a lead
// @Summary Record engagement
// @Tags leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param request body EngagementRequest true "Event"
// @Success 200 {object} models.Lead
// @Router /api/v1/leads/{id}/engagement [post]
func (h *LeadHandler) RecordEngagement(c *gin.Context) {
	var req EngagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	lead, err := h.service.RecordEngagement(c.Request.Context(), middleware.TenantID(c), c.Param("id"), req.Event)
	if err != nil {
		respondError(c, "Failed to record engagement", err)
		return
	}

	c.JSON(http.StatusOK, lead)
}

// RescoreLead recomputes a lead score
// @Summary Rescore lead
// @Tags leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} models.Lead
// @Router /api/v1/leads/{id}/rescore [post]
func (h *LeadHandler) RescoreLead(c *gin.Context) {
	lead, err := h.service.Rescore(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to rescore lead", err)
		return
	}

	c.JSON(http.StatusOK, lead)
}

// GetInsights returns the lead prediction with its recent trend
// @Summary Lead insights
// @Tags leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} service.LeadInsights
// @Router /api/v1/leads/{id}/ai-insights [get]
func (h *LeadHandler) GetInsights(c *gin.Context) {
	insights, err := h.service.Insights(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to retrieve lead insights", err)
		return
	}

	c.JSON(http.StatusOK, insights)
}

// GetScoreHistory returns the lead's score history, oldest first
// @Summary Lead score history
// @Tags leads
// @Produce json
// @Param id path string true "Lead ID"
// @Param limit query int false "Number of entries" default(50)
// @Success 200 {array} models.LeadScoreHistory
// @Router /api/v1/leads/{id}/score-history [get]
func (h *LeadHandler) GetScoreHistory(c *gin.Context) {
	limit := queryInt(c, "limit", scoring.HistoryLimit)

	history, err := h.service.History(c.Request.Context(), middleware.TenantID(c), c.Param("id"), limit)
	if err != nil {
		respondError(c, "Failed to retrieve score history", err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// AddNote attaches a note to a lead
// @Summary Add lead note
// @Tags leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param request body AddNoteRequest true "Note"
// @Success 201 {object} models.LeadNote
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/leads/{id}/notes [post]
func (h *LeadHandler) AddNote(c *gin.Context) {
	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	note, err := h.service.AddNote(c.Request.Context(), middleware.TenantID(c), c.Param("id"), service.AddNoteInput{
		Content: req.Content,
		Type:    req.Type,
	})
	if err != nil {
		respondError(c, "Failed to add note", err)
		return
	}

	c.JSON(http.StatusCreated, note)
}

// ListNotes returns a lead's notes, newest first
// @Summary List lead notes
// @Tags leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {array} models.LeadNote
// @Router /api/v1/leads/{id}/notes [get]
func (h *LeadHandler) ListNotes(c *gin.Context) {
	notes, err := h.service.Notes(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to retrieve notes", err)
		return
	}

	c.JSON(http.StatusOK, notes)
}

// DeleteLead soft-deletes a lead
// @Summary Delete lead
// @Tags leads
// @Param id path string true "Lead ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/leads/{id} [delete]
func (h *LeadHandler) DeleteLead(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.TenantID(c), c.Param("id")); err != nil {
		respondError(c, "Failed to delete lead", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (r UpdateLeadRequest) input() service.UpdateLeadInput {
	return service.UpdateLeadInput{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Company:  r.Company,
		JobTitle: r.JobTitle,
		Source:   r.Source,
		Status:   r.Status,
		Priority: r.Priority,
		Tags:     r.Tags,
	}
}
