package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aisri/internal/service"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

// errForbidden rejects webhook calls that fail verification
var errForbidden = errors.New("forbidden")

// statusFor maps an error kind to its HTTP status and code
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrCrossAthlete):
		return http.StatusForbidden, "cross_athlete"
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, service.ErrTransient):
		return http.StatusServiceUnavailable, "transient"
	case errors.Is(err, service.ErrUpstreamAuth):
		return http.StatusBadGateway, "upstream_auth"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// abortWithError writes err as an ErrorResponse and stops the handler chain
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	code, kind := statusFor(err)
	c.AbortWithStatusJSON(code, ErrorResponse{Code: kind, Message: err.Error()})
}
