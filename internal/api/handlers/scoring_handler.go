package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sivaangayarkanni/crm/internal/scoring"
)

// ScoringHandler serves stateless scoring previews. Nothing is persisted.
type ScoringHandler struct {
	engine *scoring.Engine
	now    func() time.Time
}

// NewScoringHandler creates a new scoring preview handler
func NewScoringHandler(engine *scoring.Engine) *ScoringHandler {
	return &ScoringHandler{
		engine: engine,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PreviewLead scores an unsaved lead. A missing created_at means the lead is
// new as of now.
// @Summary Preview lead score
// @Tags scoring
// @Accept json
// @Produce json
// @Param request body scoring.LeadInput true "Lead fields"
// @Success 200 {object} scoring.LeadResult
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/scoring/lead [post]
func (h *ScoringHandler) PreviewLead(c *gin.Context) {
	var in scoring.LeadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}

	now := h.now()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}

	c.JSON(http.StatusOK, h.engine.ScoreLead(in, now))
}

// PreviewDeal scores an unsaved deal
// @Summary Preview deal score
// @Tags scoring
// @Accept json
// @Produce json
// @Param request body scoring.DealInput true "Deal fields"
// @Success 200 {object} scoring.DealResult
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/scoring/deal [post]
func (h *ScoringHandler) PreviewDeal(c *gin.Context) {
	var in scoring.DealInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.engine.ScoreDeal(in, h.now()))
}
