package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	var e *models.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict, models.KindInvalidState:
		return http.StatusConflict
	case models.KindExpired:
		return http.StatusGone
	case models.KindUnauthorized:
		if e.Code == models.ErrForbidden.Code || e.Code == models.ErrNotTicketHolder.Code {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON and aborts the request. Internal errors are
// logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := errorResponse{Message: err.Error(), Code: "internal"}

	var e *models.Error
	if errors.As(err, &e) {
		body.Message = e.Message
		body.Code = e.Code
		if body.Code == "" {
			body.Code = string(e.Kind)
		}
	}
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		body.Message = "internal server error"
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, format string, args ...any) {
	respondError(c, models.ErrValidation.WithMessage(format, args...))
}
