package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
	"github.com/garyjia/expense-reimbursement/pkg/utils"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details []string    `json:"details,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrConflict),
		errors.Is(err, errs.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, errs.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, errs.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an error envelope. Messages of unknown errors stay in the log.
func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"error", err)
		if status == http.StatusInternalServerError {
			msg = "internal server error"
		}
	}
	c.AbortWithStatusJSON(status, Response{Success: false, Error: msg})
}

// badRequest reports a body or query that failed binding
func (h *Handlers) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, Response{
		Success: false,
		Error:   errs.ErrValidation.Error(),
		Details: utils.ValidationMessages(err),
	})
}

// idParam parses a numeric path parameter. Malformed IDs name nothing, so they are NotFound.
func (h *Handlers) idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.fail(c, errs.ErrNotFound)
		return 0, false
	}
	return id, true
}
