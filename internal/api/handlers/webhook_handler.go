package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sivaangayarkanni/crm/internal/api/middleware"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"github.com/sivaangayarkanni/crm/internal/service"
)

// WebhookHandler accepts submissions from outside the API, such as embedded
// lead forms. Its routes carry the tenant in the body instead of a header.
type WebhookHandler struct {
	leads *service.LeadService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(leads *service.LeadService) *WebhookHandler {
	return &WebhookHandler{
		leads: leads,
	}
}

// LeadCaptureRequest is a lead submitted by an external form
type LeadCaptureRequest struct {
	TenantID string             `json:"tenant_id" binding:"required,max=64"`
	Name     string             `json:"name" binding:"required,max=200"`
	Email    string             `json:"email" binding:"omitempty,max=254"`
	Phone    string             `json:"phone" binding:"omitempty,max=32"`
	Company  string             `json:"company" binding:"omitempty,max=200"`
	Source   scoring.LeadSource `json:"source" binding:"omitempty,lead_source"`
	Metadata map[string]string  `json:"metadata" binding:"omitempty,max=50"`
}

// LeadCaptureResponse acknowledges a captured lead
type LeadCaptureResponse struct {
	Message string        `json:"message"`
	LeadID  string        `json:"lead_id"`
	Score   int           `json:"score"`
	Grade   scoring.Grade `json:"grade"`
}

// CaptureLead creates a lead from an external form submission
// @Summary Capture lead
// @Tags webhooks
// @Accept json
// @Produce json
// @Param request body LeadCaptureRequest true "Submission"
// @Success 201 {object} LeadCaptureResponse
// @Failure 400 {object} ErrorResponse
// @Router /webhooks/lead-capture [post]
func (h *WebhookHandler) CaptureLead(c *gin.Context) {
	var req LeadCaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tenantID := strings.TrimSpace(req.TenantID)
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing tenant", Message: "tenant_id is required"})
		return
	}
	c.Set(middleware.ContextTenantIDKey, tenantID)

	lead, err := h.leads.Capture(c.Request.Context(), tenantID, service.CreateLeadInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Company:  req.Company,
		Source:   req.Source,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondError(c, "Failed to capture lead", err)
		return
	}

	c.JSON(http.StatusCreated, LeadCaptureResponse{
		Message: "Lead captured successfully",
		LeadID:  lead.ID,
		Score:   lead.AIScore,
		Grade:   lead.AIGrade,
	})
}
