package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/zoompay/internal/application/service"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Field   string      `json:"field,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domainwf.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domainwf.ErrValidation), errors.Is(err, domainwf.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, domainwf.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainwf.ErrInvalidTransition), errors.Is(err, domainwf.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrSuggestionsDisabled), errors.Is(err, domainwf.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the response envelope. Validation errors carry the offending field.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := Response{Success: false, Error: err.Error()}

	var verr *domainwf.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
		resp.Error = verr.Message
	}
	if status == http.StatusInternalServerError {
		// do not leak driver or decoder detail
		resp.Error = "internal error"
	}

	_ = c.Error(err)
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, field, message string) {
	writeError(c, domainwf.NewValidationError(field, message))
}
