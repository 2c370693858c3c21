package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roorq/storefront/internal/access"
	"github.com/roorq/storefront/internal/audit"
	"github.com/roorq/storefront/internal/csrf"
	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/event"
	"github.com/roorq/storefront/internal/repository"
	"github.com/roorq/storefront/internal/service"
	"github.com/roorq/storefront/internal/session"
	"github.com/roorq/storefront/internal/storage/memory"
	apperrors "github.com/roorq/storefront/pkg/errors"
	"github.com/roorq/storefront/pkg/httputil"
)

const (
	vendorID    = "7d9f3c2e-5a41-4b8e-9c1d-2f6a8b0e4d11"
	customerID  = "1b2c3d4e-5f60-4718-8a9b-0c1d2e3f4a5b"
	adminID     = "9e8d7c6b-5a49-4382-b1a0-f9e8d7c6b5a4"
	testCSRF    = "4f3c2b1a0e9d8c7b6a5f4e3d2c1b0a9f8e7d6c5b4a3f2e1d0c9b8a7f6e5d4c3b"
	vendorToken = "vendor-session"
	userToken   = "customer-session"
	adminToken  = "admin-session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- Fakes ---

type fakeResolver map[string]*session.Identity

func (f fakeResolver) Resolve(_ context.Context, token string) (*session.Identity, error) {
	id, ok := f[token]
	if !ok {
		return nil, session.ErrNoSession
	}
	return id, nil
}

type fakeRoles map[string]*domain.RoleRecord

func (f fakeRoles) LookupRole(_ context.Context, userID string) (*domain.RoleRecord, error) {
	rec, ok := f[userID]
	if !ok {
		return nil, apperrors.NotFound("user", userID)
	}
	return rec, nil
}

type memoryAuditRepo struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (m *memoryAuditRepo) Insert(_ context.Context, e *domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *memoryAuditRepo) ListRecent(_ context.Context, _ repository.AuditFilter) ([]domain.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEvent(nil), m.events...), nil
}

type memoryVendorRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.VendorProfile
}

func (m *memoryVendorRepo) GetProfile(_ context.Context, userID string) (*domain.VendorProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, apperrors.NotFound("vendor", userID)
	}
	cp := *p
	return &cp, nil
}

func (m *memoryVendorRepo) UpdateProfile(_ context.Context, userID string, u domain.VendorProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return apperrors.NotFound("vendor", userID)
	}
	if u.StoreName != nil {
		p.StoreName = *u.StoreName
	}
	if u.UPIID != nil {
		p.UPIID = *u.UPIID
	}
	return nil
}

func (m *memoryVendorRepo) List(_ context.Context, _ repository.VendorFilter) ([]domain.VendorProfile, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.VendorProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *memoryVendorRepo) SetStatus(_ context.Context, userID string, status domain.VendorStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return apperrors.NotFound("vendor", userID)
	}
	p.Status, p.StatusReason = status, reason
	return nil
}

func (m *memoryVendorRepo) MarkDocumentsSubmitted(context.Context, string) (bool, error) {
	return false, nil
}

func (m *memoryVendorRepo) storeName(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[userID].StoreName
}

// --- Setup ---

type testEnv struct {
	router  http.Handler
	vendors *memoryVendorRepo
	audits  *memoryAuditRepo
	rec     *audit.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()

	vendors := &memoryVendorRepo{profiles: map[string]*domain.VendorProfile{
		vendorID: {UserID: vendorID, Email: "thrift@campus.edu", Status: domain.VendorApproved, StoreName: "Old Store"},
	}}
	audits := &memoryAuditRepo{}
	rec := audit.NewRecorder(audits, time.Second, logger)

	resolver := fakeResolver{
		vendorToken: {UserID: vendorID, Email: "thrift@campus.edu"},
		userToken:   {UserID: customerID, Email: "asha@campus.edu"},
		adminToken:  {UserID: adminID, Email: "ops@roorq.in"},
	}
	roles := fakeRoles{
		vendorID:   {UserID: vendorID, Role: domain.RoleVendor, UserType: domain.UserTypeVendor, VendorStatus: domain.VendorApproved},
		customerID: {UserID: customerID, Role: domain.RoleCustomer, UserType: domain.UserTypeCustomer},
		adminID:    {UserID: adminID, Role: domain.RoleAdmin, UserType: domain.UserTypeCustomer},
	}

	producer := event.NewProducer(event.Discard{}, logger)
	router := NewRouter(RouterConfig{
		ServiceName: "roorq-storefront-test",
		Orders:      service.NewOrderService(nil, nil, producer, 0, logger),
		Vendors: service.NewVendorService(vendors, nil, memory.New("http://files.test"), nil, producer,
			service.DocumentPolicy{MaxBytes: 1 << 20, PresignTTL: time.Minute}, logger),
		Products:         service.NewProductService(nil, logger),
		Payouts:          service.NewPayoutService(nil, producer, service.PayoutPolicy{}, logger),
		Referrals:        service.NewReferralService(nil, 0),
		Payments:         service.NewPaymentService(),
		Audit:            rec,
		Guard:            access.NewGuard(resolver, roles, rec, logger),
		Gate:             csrf.NewGate(false),
		MaxDocumentBytes: 1 << 20,
	}, logger)

	return &testEnv{router: router, vendors: vendors, audits: audits, rec: rec}
}

func (e *testEnv) do(method, path, sessionToken string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sessionToken})
	}
	req.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: testCSRF})

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// --- Vendor profile ---

func TestUpdateVendorProfile_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPatch, "/api/vendor/profile", vendorToken, map[string]any{
		"storeName": "Thrift Hub",
		"csrf":      testCSRF,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "Thrift Hub", env.vendors.storeName(vendorID))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestUpdateVendorProfile_MissingCSRF(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPatch, "/api/vendor/profile", vendorToken, map[string]any{
		"storeName": "Thrift Hub",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "csrf is required", resp.Error)
	assert.Equal(t, "Old Store", env.vendors.storeName(vendorID))
}

func TestUpdateVendorProfile_InvalidCSRF(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPatch, "/api/vendor/profile", vendorToken, map[string]any{
		"storeName": "Thrift Hub",
		"csrf":      "not-the-cookie-value",
	})

	require.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, csrf.InvalidTokenMessage, resp.Error)
	assert.Equal(t, "Old Store", env.vendors.storeName(vendorID))
}

func TestUpdateVendorProfile_PaddedCSRFRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPatch, "/api/vendor/profile", vendorToken, map[string]any{
		"storeName": "Thrift Hub",
		"csrf":      "  " + testCSRF + "\t",
	})

	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	resp := decodeResponse(t, rec)
	assert.Equal(t, csrf.InvalidTokenMessage, resp.Error)
	assert.Equal(t, "Old Store", env.vendors.storeName(vendorID))
}

func TestUpdateVendorProfile_InvalidField(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPatch, "/api/vendor/profile", vendorToken, map[string]any{
		"upiId": "not a upi id",
		"csrf":  testCSRF,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "upiId must be a valid UPI id", resp.Error)
}

func TestUpdateVendorProfile_UnknownField(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPatch, "/api/vendor/profile", vendorToken, map[string]any{
		"vendor_status": "approved",
		"csrf":          testCSRF,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVendorRoutes_CustomerForbidden(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/vendor/profile", userToken, nil)

	require.Equal(t, http.StatusForbidden, rec.Code)
	env.rec.Wait()
	events, _ := env.audits.ListRecent(context.Background(), repository.AuditFilter{})
	require.Len(t, events, 1)
	assert.Equal(t, domain.ActionVendorAccess, events[0].Action)
	assert.Equal(t, domain.AuditFailed, events[0].Status)
}

// --- Admin ---

func TestAdminSetVendorStatus_NonAdminForbiddenAndAudited(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPatch, "/api/admin/vendors/"+vendorID, vendorToken, map[string]any{
		"status": "suspended",
		"reason": "counterfeit listings",
		"csrf":   testCSRF,
	})

	require.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "FORBIDDEN", resp.Code)

	env.rec.Wait()
	events, err := env.audits.ListRecent(context.Background(), repository.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.ActionAdminAccess, events[0].Action)
	assert.Equal(t, domain.AuditFailed, events[0].Status)
	assert.Equal(t, vendorID, events[0].UserID)
	assert.Equal(t, domain.ReasonInsufficientRole, events[0].Reason())

	p, _ := env.vendors.GetProfile(context.Background(), vendorID)
	assert.Equal(t, domain.VendorApproved, p.Status)
}

func TestAdminSetVendorStatus_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPatch, "/api/admin/vendors/"+vendorID, adminToken, map[string]any{
		"status": "suspended",
		"reason": "counterfeit listings",
		"csrf":   testCSRF,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p, _ := env.vendors.GetProfile(context.Background(), vendorID)
	assert.Equal(t, domain.VendorSuspended, p.Status)
	assert.Equal(t, "counterfeit listings", p.StatusReason)
}

func TestAdminSetVendorStatus_SuspendWithoutReason(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPatch, "/api/admin/vendors/"+vendorID, adminToken, map[string]any{
		"status": "suspended",
		"csrf":   testCSRF,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminAudit_ListsEvents(t *testing.T) {
	env := newTestEnv(t)

	env.do(http.MethodGet, "/api/admin/audit", userToken, nil)
	env.rec.Wait()

	rec := env.do(http.MethodGet, "/api/admin/audit?limit=10", adminToken, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []domain.AuditEvent `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "asha@campus.edu", body.Data[0].Identifier)
}

// --- Unauthenticated ---

func TestAPI_NoSessionIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/orders", "", nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "UNAUTHORIZED", resp.Code)

	env.rec.Wait()
	events, _ := env.audits.ListRecent(context.Background(), repository.AuditFilter{})
	require.Len(t, events, 1)
	assert.Equal(t, domain.ReasonNotAuthenticated, events[0].Reason())
}

func TestAdminPage_RedirectsToLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/admin", "", nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fadmin", rec.Header().Get("Location"))
}

func TestAdminPage_VendorRedirectedHome(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/admin", vendorToken, nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestVendorPage_Renders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/vendor", vendorToken, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"page":"vendor"`)
}

// --- Public ---

func TestCSRFToken_IssuesAndReuses(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var first TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	assert.Len(t, first.Token, 64)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, csrf.CookieName, cookies[0].Name)
	assert.Equal(t, first.Token, cookies[0].Value)

	// Existing cookie is reused.
	rec = env.do(http.MethodGet, "/api/csrf", "", nil)
	var second TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	assert.Equal(t, testCSRF, second.Token)
	assert.Empty(t, rec.Result().Cookies())
}

func TestRazorpayOrder_NotImplemented(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/payments/razorpay/order", "", map[string]any{"amount": 100})

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, strings.Contains(resp.Error, "cash on delivery"))
}
