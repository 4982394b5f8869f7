package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sublyime/ingestion/pkg/apperrors"
	"github.com/sublyime/ingestion/pkg/logging"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// MessageResponse confirms a mutation that returns no entity.
type MessageResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// writeError writes a client error with the given code and logs a failed write.
func writeError(w http.ResponseWriter, logger *zap.Logger, statusCode int, errorCode, message string) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeServiceError maps a classified error to its status and body. Messages of client
// errors are passed through; store failures get a fixed text so driver detail stays in logs.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := apperrors.HTTPStatus(err)

	var code, message string
	switch status {
	case http.StatusBadRequest:
		code, message = "validation_failed", validationMessage(err)
	case http.StatusNotFound:
		code, message = "not_found", notFoundMessage(err)
	case http.StatusServiceUnavailable:
		code, message = "store_unavailable", "Database connection unavailable"
	default:
		code, message = "internal_error", "Internal server error"
	}

	writeError(w, logger, status, code, message)
}

func validationMessage(err error) string {
	if e := asAppError(err); e != nil && e.Message != "" {
		return e.Message
	}
	return "Invalid request"
}

func notFoundMessage(err error) string {
	if e := asAppError(err); e != nil && e.Message != "" {
		return e.Message
	}
	return "Not found"
}

func asAppError(err error) *apperrors.Error {
	var e *apperrors.Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// errorField logs err with credentials removed; driver errors can echo the DSN.
func errorField(err error) zap.Field {
	return zap.String("error", logging.SanitizeError(err))
}
