package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/apperrors"
)

// maxBodyBytes caps request bodies read by the JSON handlers.
const maxBodyBytes = 1 << 20

// ApiError is the body of every failed request.
type ApiError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ApiError{
		Success: false,
		Error:   message,
		Code:    errorCode,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, logger *zap.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}

// writeServiceError maps a service error onto a status code. Validation
// messages are returned to the caller; anything unexpected is logged and
// reported generically.
func writeServiceError(w http.ResponseWriter, err error, logger *zap.Logger, msg string, fields ...zap.Field) {
	var (
		ve     *apperrors.ValidationError
		status int
		code   string
		text   string
	)
	switch {
	case errors.As(err, &ve):
		status, code, text = http.StatusBadRequest, "validation_error", ve.Error()
		logger.Debug(msg, append(fields, zap.Error(err))...)
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, text = http.StatusNotFound, "not_found", "Not found"
	case errors.Is(err, apperrors.ErrConflict):
		status, code, text = http.StatusConflict, "conflict", "The entity was changed concurrently, retry the request"
		logger.Warn(msg, append(fields, zap.Error(err))...)
	default:
		status, code, text = http.StatusInternalServerError, "internal_error", "Internal server error"
		logger.Error(msg, append(fields, zap.Error(err))...)
	}

	if err := ErrorResponse(w, status, code, text); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
