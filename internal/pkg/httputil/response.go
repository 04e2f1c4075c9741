package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ignite/contentflow/internal/pkg/logger"
)

// MaxBodyBytes caps request bodies read by Decode. Generated blog articles
// and email campaigns are the largest payloads.
const MaxBodyBytes = 1 << 20

// ErrorBody is the error envelope every endpoint returns.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON encodes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "status", status, "error", err)
	}
}

func OK(w http.ResponseWriter, v any)      { JSON(w, http.StatusOK, v) }
func Created(w http.ResponseWriter, v any) { JSON(w, http.StatusCreated, v) }

// Accepted is for a state change that was stored while a follow-up side
// effect failed.
func Accepted(w http.ResponseWriter, v any) { JSON(w, http.StatusAccepted, v) }

// ErrorCode writes the error envelope.
func ErrorCode(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorBody{Error: message, Code: code})
}

// Decode reads a single JSON object into dst, rejecting unknown fields and
// bodies over MaxBodyBytes. On failure it has already written a 400 (or
// 413) and returns false.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorCode(w, http.StatusRequestEntityTooLarge, "INVALID_INPUT", "request body too large")
			return false
		}
		ErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "invalid JSON: "+err.Error())
		return false
	}
	return true
}
