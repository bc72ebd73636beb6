package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sivaangayarkanni/crm/internal/apperr"
	"github.com/sivaangayarkanni/crm/pkg/logger"
	"go.uber.org/zap"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ListResponse is one page of a listing
type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Pages int         `json:"pages"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components"`
}

func newListResponse(data interface{}, total int64, page, limit int) ListResponse {
	return ListResponse{
		Data:  data,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

// respondError writes err as an ErrorResponse. Typed domain errors keep their
// status and message; anything else is a 500 with the given summary.
func respondError(c *gin.Context, summary string, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus()
		if status >= http.StatusInternalServerError {
			logger.Error(summary, zap.Error(err))
		}
		c.JSON(status, ErrorResponse{
			Error:   http.StatusText(status),
			Message: appErr.Message,
		})
		return
	}

	logger.Error(summary, zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   summary,
		Message: err.Error(),
	})
}

// respondBindError reports a request that failed to bind or validate.
func respondBindError(c *gin.Context, err error) {
	message := err.Error()
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		message = describeValidationError(verrs[0])
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid request",
		Message: message,
	})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperr.Validation("dates must be RFC 3339 or YYYY-MM-DD: " + raw)
	}
	return &t, nil
}
