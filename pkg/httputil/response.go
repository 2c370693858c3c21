package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/roorq/storefront/pkg/errors"
	"github.com/roorq/storefront/pkg/logger"
	"github.com/roorq/storefront/pkg/validator"
)

// Response is the JSON envelope shared by every storefront API.
//
// Mutations answer {"success":true}; reads answer {"data":...}; failures
// answer {"error":"<message>","code":"<CODE>"}.
type Response struct {
	Success   bool              `json:"success,omitempty"`
	Data      any               `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Code      string            `json:"code,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes 200 {"success":true}.
func WriteSuccess(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, Response{Success: true})
}

// WriteData writes {"data": data} with the given status.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Data: data})
}

// WriteError writes the error envelope for err. AppErrors keep their status and
// message; anything that maps to 5xx is logged with its cause and answered with
// the generic internal message.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	status := apperrors.HTTPStatus(err)
	code, message := "INTERNAL_ERROR", apperrors.InternalMessage

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		code, message = appErr.Code, appErr.Message
	case errors.Is(err, apperrors.ErrNotFound):
		code, message = "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		code, message = "ALREADY_EXISTS", "resource already exists"
	case errors.Is(err, apperrors.ErrConflict):
		code, message = "CONFLICT", err.Error()
	case errors.Is(err, apperrors.ErrInvalidInput):
		code, message = "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		code, message = "UNAUTHORIZED", "Unauthorized"
	case errors.Is(err, apperrors.ErrForbidden):
		code, message = "FORBIDDEN", "Forbidden"
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		if status == http.StatusInternalServerError {
			code, message = "INTERNAL_ERROR", apperrors.InternalMessage
		}
	}

	WriteJSON(w, status, Response{Error: message, Code: code, RequestID: requestID})
}

// WriteValidationError writes a 400 whose message is the first violated field
// and whose fields map lists every violation.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error:  valErr.First(),
			Code:   "VALIDATION_ERROR",
			Fields: valErr.Fields(),
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{Error: err.Error(), Code: "INVALID_INPUT"})
}

// PaginatedResponse is a generic paginated list response envelope.
type PaginatedResponse[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// NewPaginatedResponse constructs a PaginatedResponse and computes TotalPages
// and HasNext.
func NewPaginatedResponse[T any](data []T, totalCount, page, perPage int) PaginatedResponse[T] {
	totalPages := 0
	if perPage > 0 {
		totalPages = totalCount / perPage
		if totalCount%perPage > 0 {
			totalPages++
		}
	}
	if data == nil {
		data = []T{}
	}
	return PaginatedResponse[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// ParseUUID validates a path parameter. On failure it writes a 400 and returns
// false so the caller can return early.
func ParseUUID(w http.ResponseWriter, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: "invalid id: " + param,
			Code:  "INVALID_PARAMETER",
		})
		return uuid.Nil, false
	}
	return id, true
}
