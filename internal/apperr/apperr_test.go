package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
	}{
		{NotFound("lead not found"), http.StatusNotFound},
		{Validation("bad stage"), http.StatusBadRequest},
		{BadRequest("bad body"), http.StatusBadRequest},
		{Conflict("version changed"), http.StatusConflict},
		{Internal("boom"), http.StatusInternalServerError},
		{New(KindUnknown, "?"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.HTTPStatus(), tt.err.Message)
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := errors.New("driver failure")
	err := fmt.Errorf("rescore lead: %w", Wrap(KindInternal, "failed to save lead", base).WithOp("LeadService.Rescore"))

	assert.True(t, Is(err, KindInternal))
	assert.False(t, Is(err, KindNotFound))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "rescore lead: LeadService.Rescore: failed to save lead", err.Error())
	assert.Equal(t, KindUnknown, GetKind(base))
}
