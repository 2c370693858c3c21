package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/roorq/storefront/pkg/errors"
	"github.com/roorq/storefront/pkg/logger"
	"github.com/roorq/storefront/pkg/validator"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, map[string]string{"id": "o-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"data":{"id":"o-1"}}`, rec.Body.String())
}

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/vendor/orders/1", nil)

	WriteError(rec, req, apperrors.Forbidden("Invalid CSRF token."), nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "Invalid CSRF token.", out["error"])
	assert.Equal(t, "FORBIDDEN", out["code"])
}

func TestWriteError_WrappedConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/", nil)

	err := fmt.Errorf("transition order: %w", apperrors.Conflict("order status changed concurrently"))
	WriteError(rec, req, err, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "order status changed concurrently", decode(t, rec)["error"])
}

func TestWriteError_Sentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{apperrors.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{apperrors.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
		{apperrors.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode(t, rec)["code"])
		})
	}
}

func TestWriteError_InternalHidesCauseAndLogsIt(t *testing.T) {
	var buf bytes.Buffer
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/vendors/1", nil)

	WriteError(rec, req, fmt.Errorf("dial tcp 10.0.0.5:5432: connection refused"), testLogger(&buf))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "Internal server error", out["error"])
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Contains(t, buf.String(), "connection refused")
}

func TestWriteError_AppInternalHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, apperrors.Internal(fmt.Errorf("secret detail")), testLogger(&bytes.Buffer{}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := logger.WithCorrelationID(context.Background(), "corr-123")
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	WriteError(rec, req, apperrors.ErrNotFound, nil)

	assert.Equal(t, "corr-123", decode(t, rec)["request_id"])
}

func TestWriteError_NoCorrelationID_OmitsRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), apperrors.ErrNotFound, nil)

	_, has := decode(t, rec)["request_id"]
	assert.False(t, has)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	CSRF   string `json:"csrf" validate:"required,min=16"`
}

func TestWriteValidationError_FirstField(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, validator.Validate(statusRequest{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "status is required", out["error"])
	assert.Equal(t, "VALIDATION_ERROR", out["code"])
	fields, ok := out["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "csrf")
}

func TestWriteValidationError_NonValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, fmt.Errorf("decode request body: unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decode(t, rec)["code"])
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse([]string{"a", "b"}, 25, 1, 10)
	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasNext)

	last := NewPaginatedResponse([]string{"x"}, 21, 3, 10)
	assert.False(t, last.HasNext)

	empty := NewPaginatedResponse[string](nil, 0, 1, 20)
	assert.NotNil(t, empty.Data)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestParseUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "550E8400-E29B-41D4-A716-446655440000")
	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())

	rec = httptest.NewRecorder()
	_, ok = ParseUUID(rec, "not-a-uuid")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "INVALID_PARAMETER", out["code"])
	assert.Contains(t, out["error"], "not-a-uuid")
}
