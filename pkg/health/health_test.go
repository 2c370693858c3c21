package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ready(t *testing.T, h *Handler) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func up(context.Context) error { return nil }

func TestLivenessHandler_AlwaysReturns200(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", func(context.Context) error { return fmt.Errorf("down") })

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestReadiness_AllUp(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", up)
	h.RegisterNonCritical("redis", up)
	h.RegisterNonCritical("kafka", up)

	code, resp := ready(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
	assert.Len(t, resp.Checks, 3)
}

func TestReadiness_NoCheckers(t *testing.T) {
	code, resp := ready(t, NewHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
}

func TestReadiness_NonCriticalDown_Degraded(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", up)
	h.RegisterNonCritical("minio", func(context.Context) error { return fmt.Errorf("bucket unreachable") })

	code, resp := ready(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.True(t, resp.Checks["postgres"].Critical)
	assert.False(t, resp.Checks["minio"].Critical)
	assert.Equal(t, "bucket unreachable", resp.Checks["minio"].Error)
}

func TestReadiness_CriticalDown_503(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", func(context.Context) error { return fmt.Errorf("connection refused") })
	h.RegisterNonCritical("redis", func(context.Context) error { return fmt.Errorf("redis down") })

	code, resp := ready(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusDown, resp.Status)
	assert.Equal(t, StatusDown, resp.Checks["postgres"].Status)
}

func TestRegister_IsCriticalAndOverwrites(t *testing.T) {
	h := NewHandler()
	h.Register("postgres", func(context.Context) error { return fmt.Errorf("fail") })

	code, resp := ready(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.True(t, resp.Checks["postgres"].Critical)

	h.Register("postgres", up)
	code, _ = ready(t, h)
	assert.Equal(t, http.StatusOK, code)
}
