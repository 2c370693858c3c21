package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roorq/storefront/pkg/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded chain", "203.0.113.7, 10.0.0.1", "", "10.0.0.2:443", "203.0.113.7"},
		{"forwarded garbage then ip", "unknown, 198.51.100.4", "", "10.0.0.2:443", "198.51.100.4"},
		{"real ip", "", "198.51.100.9", "10.0.0.2:443", "198.51.100.9"},
		{"remote addr", "", "", "192.0.2.10:5123", "192.0.2.10"},
		{"remote without port", "", "", "192.0.2.11", "192.0.2.11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestRequestLogging_AssignsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("test", "info", &buf)

	var seen string
	h := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationHeader))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, float64(http.StatusCreated), line["status"])
	assert.Equal(t, "/api/orders", line["path"])
}

func TestRequestLogging_ReusesValidInboundID(t *testing.T) {
	const id = "6f1c1d8e-2b2a-4c65-9d55-6c1f4a8c0b11"
	h := RequestLogging(discardLogger())(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, id)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(CorrelationHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "<script>")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get(CorrelationHeader))
}

func TestRequestLogger_StoresEnrichedLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter("test", "info", &buf)

	h := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside")
	}))

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	assert.Contains(t, buf.String(), `"correlation_id":"corr-1"`)
}

func TestRecovery_Returns500Envelope(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error","code":"INTERNAL_ERROR"}`, rec.Body.String())
}

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("metrics-test"))
	r.Get("/api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/"+strings.Repeat("a", i+1), nil))
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("metrics-test", "GET", "/api/orders/{id}", "404"))
	assert.Equal(t, float64(2), got)
	assert.Equal(t, float64(0), testutil.ToFloat64(httpRequestsInFlight.WithLabelValues("metrics-test")))

	hist := metricWithLabels(t, httpRequestDuration, map[string]string{"service": "metrics-test", "path": "/api/orders/{id}"})
	require.NotNil(t, hist)
	assert.Equal(t, uint64(2), hist.GetHistogram().GetSampleCount())
}

// metricWithLabels returns the first metric of c carrying all of labels.
func metricWithLabels(t *testing.T, c prometheus.Collector, labels map[string]string) *dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		require.NoError(t, m.Write(d))
		got := make(map[string]string, len(d.GetLabel()))
		for _, lp := range d.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		matched := true
		for k, v := range labels {
			if got[k] != v {
				matched = false
				break
			}
		}
		if matched {
			return d
		}
	}
	return nil
}

func TestTracing_NamesSpanByRoute(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	r := chi.NewRouter()
	r.Use(Tracing("storefront"))
	r.Patch("/api/vendor/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodPatch, "/api/vendor/orders/42", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "PATCH /api/vendor/orders/{id}", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext.TraceID().String())
	assert.NotEmpty(t, rec.Header().Get("traceparent"))
}

func TestSecurityAndCacheHeaders(t *testing.T) {
	h := SecurityHeaders(NoStore(http.HandlerFunc(okHandler)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	CacheControl(60)(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drops", nil))
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
}

func TestContentTypeJSON(t *testing.T) {
	h := ContentTypeJSON(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader("storeName=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist(t *testing.T) {
	h := IPAllowlist([]string{"10.0.0.0/8", "not-a-cidr"}, discardLogger())(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	req.Header.Set("X-Forwarded-For", "10.1.2.3")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVisitorStore_TokenBucket(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newVisitorStore(1, 2, time.Minute)
	s.now = func() time.Time { return now }

	assert.True(t, s.allow("1.1.1.1"))
	assert.True(t, s.allow("1.1.1.1"))
	assert.False(t, s.allow("1.1.1.1"))
	assert.True(t, s.allow("2.2.2.2"), "buckets are per ip")

	now = now.Add(time.Second)
	assert.True(t, s.allow("1.1.1.1"))

	now = now.Add(2 * time.Minute)
	s.sweep()
	assert.Equal(t, 0, s.size())
}

func TestRateLimiter_OnlyMutatingRequestsSpendTokens(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, discardLogger())
	defer rl.Close()
	h := rl.Handler(http.HandlerFunc(okHandler))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drops", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}
