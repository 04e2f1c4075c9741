package api

import (
	"errors"
	"net/http"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/pkg/httputil"
	"github.com/ignite/contentflow/internal/pkg/logger"
	"github.com/ignite/contentflow/internal/service/content"
)

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, content.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, content.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err with its status and code. Server errors are
// logged and replaced with a generic message.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusBadGateway {
		logger.Warn("content generation failed", "error", err)
		httputil.ErrorCode(w, status, "GENERATION_FAILED", "the content generator did not return a usable draft")
		return
	}
	if status >= 500 && status != http.StatusServiceUnavailable {
		logger.Error("request failed", "code", domain.Code(err), "error", err)
		httputil.ErrorCode(w, status, domain.Code(err), "internal server error")
		return
	}
	code := domain.Code(err)
	if status == http.StatusServiceUnavailable {
		code = "UNAVAILABLE"
	}
	httputil.ErrorCode(w, status, code, err.Error())
}

// withWarning is the 202 body for a stored change whose event was not
// published.
type withWarning struct {
	Data    any    `json:"data"`
	Warning string `json:"warning"`
	Code    string `json:"code"`
}

// respond writes the result of a command. A publish failure with a
// stored entity becomes 202; any other error is written by writeError.
func respond[T any](w http.ResponseWriter, status int, data *T, err error) {
	if err == nil {
		httputil.JSON(w, status, data)
		return
	}
	if errors.Is(err, domain.ErrPublish) && data != nil {
		logger.Warn("change stored without event", "error", err)
		httputil.Accepted(w, withWarning{Data: data, Warning: err.Error(), Code: domain.CodePublish})
		return
	}
	writeError(w, err)
}
