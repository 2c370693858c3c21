package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCBConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      5 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func statusServer(status *atomic.Int32, hits *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(int(status.Load()))
	}))
}

func tripBreaker(t *testing.T, cb *CircuitBreakerClient, url string) {
	t.Helper()
	for i := 0; i < 3; i++ {
		_, err := cb.Get(context.Background(), url, nil)
		require.Error(t, err)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestCircuitBreaker_ClosedState_Success(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := statusServer(&status, nil)
	defer server.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), testCBConfig("test-closed"), testLogger())

	resp, err := cb.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_OpenStateRejectsWithoutCallingServer(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(http.StatusInternalServerError)
	server := statusServer(&status, &hits)
	defer server.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), testCBConfig("test-open"), testLogger())
	tripBreaker(t, cb, server.URL)

	before := hits.Load()
	for i := 0; i < 5; i++ {
		_, err := cb.Get(context.Background(), server.URL, nil)
		assert.ErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, before, hits.Load())
}

func TestCircuitBreaker_HalfOpenToClosedRecovery(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusInternalServerError)
	server := statusServer(&status, nil)
	defer server.Close()

	cfg := testCBConfig("test-recovery")
	cfg.Timeout = 100 * time.Millisecond
	cb := NewCircuitBreakerClient(New(fastConfig(0)), cfg, testLogger())
	tripBreaker(t, cb, server.URL)

	time.Sleep(150 * time.Millisecond)
	status.Store(http.StatusOK)

	resp, err := cb.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_4xxNotCountedAsFailure(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusUnauthorized)
	server := statusServer(&status, nil)
	defer server.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), testCBConfig("test-4xx"), testLogger())

	for i := 0; i < 5; i++ {
		resp, err := cb.Get(context.Background(), server.URL, nil)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_DefaultConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("auth-provider")
	assert.Equal(t, "auth-provider", cfg.Name)
	assert.Equal(t, uint32(1), cfg.MaxRequests)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, uint32(5), cfg.MinRequests)
}

func TestCircuitBreaker_WithFallback(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadGateway)
	server := statusServer(&status, nil)
	defer server.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), testCBConfig("test-fallback"), testLogger())

	var called atomic.Bool
	withFallback := cb.WithFallback(func(ctx context.Context, err error) (*http.Response, error) {
		called.Store(true)
		return nil, fmt.Errorf("fallback: %w", err)
	})
	tripBreaker(t, withFallback, server.URL)

	_, err := withFallback.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.True(t, called.Load())
	assert.Contains(t, err.Error(), "fallback")
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), testCBConfig("test-ctx"), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := cb.Get(ctx, server.URL, nil)
	require.Error(t, err)
}

func TestStateToFloat(t *testing.T) {
	assert.Equal(t, 0.0, stateToFloat(gobreaker.StateClosed))
	assert.Equal(t, 1.0, stateToFloat(gobreaker.StateHalfOpen))
	assert.Equal(t, 2.0, stateToFloat(gobreaker.StateOpen))
}
