// Package handler exposes the REST surface of the platform.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/ledger"
	"github.com/str3am/backend-go/internal/service"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Helper functions

func sendJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, statusCode int, error string, message string, details map[string]interface{}) {
	sendJSON(w, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
		Details: details,
	})
}

// sendServiceError maps the service error taxonomy onto HTTP status
// codes. Unknown errors become a 500 and are logged with the operation
// name.
func sendServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	var validationErr *service.ValidationError
	var conflictErr *service.ConflictError

	switch {
	case errors.As(err, &validationErr):
		sendError(w, http.StatusBadRequest, "validation failed", validationErr.Message, nil)
	case errors.As(err, &conflictErr):
		var details map[string]interface{}
		if conflictErr.Existing != nil {
			details = map[string]interface{}{"existing": conflictErr.Existing}
		}
		sendError(w, http.StatusConflict, "conflict", conflictErr.Message, details)
	case errors.Is(err, service.ErrForbidden):
		sendError(w, http.StatusForbidden, "forbidden", "operation not permitted", nil)
	case errors.Is(err, service.ErrInactiveVideo):
		sendError(w, http.StatusGone, "video inactive", "video has been taken down", nil)
	case errors.Is(err, service.ErrPaymentRequired):
		sendError(w, http.StatusPaymentRequired, "payment required", "no access grant for this video", nil)
	case db.IsNotFound(err):
		sendError(w, http.StatusNotFound, "not found", "", nil)
	case db.IsDuplicateKey(err):
		sendError(w, http.StatusConflict, "conflict", "resource already exists", nil)
	case db.IsForeignKeyViolation(err):
		sendError(w, http.StatusBadRequest, "validation failed", "referenced resource does not exist", nil)
	case db.IsCheckViolation(err):
		sendError(w, http.StatusBadRequest, "validation failed", "value rejected by a data constraint", nil)
	case errors.Is(err, ledger.ErrUpstream):
		logger.Error("ledger gateway failure", "op", op, "error", err)
		sendError(w, http.StatusBadGateway, "upstream failure", "ledger gateway is unavailable", nil)
	default:
		logger.Error("operation failed", "op", op, "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error", fmt.Sprintf("failed to %s", op), nil)
	}
}

func parseLimit(r *http.Request) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return defaultLimit
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return defaultLimit
	}

	if limit > maxLimit {
		return maxLimit
	}

	return limit
}

func parseOffset(r *http.Request) int {
	offsetStr := r.URL.Query().Get("offset")
	if offsetStr == "" {
		return 0
	}

	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return 0
	}

	return offset
}

func parseBool(r *http.Request, key string) (*bool, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, fmt.Errorf("invalid boolean value for %s", key)
	}

	return &b, nil
}

func parseUUID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id: must be a UUID")
	}
	return id, nil
}
