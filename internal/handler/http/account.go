package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/repository"
	"github.com/roorq/storefront/internal/service"
	"github.com/roorq/storefront/pkg/httputil"
)

// AuditLister reads recent audit events.
type AuditLister interface {
	List(ctx context.Context, filter repository.AuditFilter) ([]domain.AuditEvent, error)
}

// AccountHandler serves referral, payment, audit and dashboard page
// endpoints.
type AccountHandler struct {
	referrals *service.ReferralService
	payments  *service.PaymentService
	audit     AuditLister
	logger    *slog.Logger
}

// NewAccountHandler creates a new account HTTP handler.
func NewAccountHandler(referrals *service.ReferralService, payments *service.PaymentService, audit AuditLister, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		referrals: referrals,
		payments:  payments,
		audit:     audit,
		logger:    logger,
	}
}

// PageResponse is the JSON summary served for dashboard pages.
type PageResponse struct {
	Page string            `json:"page"`
	User *domain.Principal `json:"user"`
}

// Referrals handles GET /api/referrals/me
func (h *AccountHandler) Referrals(w http.ResponseWriter, r *http.Request) {
	summary, err := h.referrals.Summary(r.Context(), principal(r).ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, summary)
}

// CreateRazorpayOrder handles POST /api/payments/razorpay/order
func (h *AccountHandler) CreateRazorpayOrder(w http.ResponseWriter, r *http.Request) {
	err := h.payments.CreateGatewayOrder(r.Context(), "")
	httputil.WriteError(w, r, err, h.logger)
}

// Audit handles GET /api/admin/audit?action=&status=&limit=
func (h *AccountHandler) Audit(w http.ResponseWriter, r *http.Request) {
	var filter repository.AuditFilter
	q := r.URL.Query()

	if v := q.Get("action"); v != "" {
		action := domain.AuditAction(v)
		filter.Action = &action
	}
	if v := q.Get("status"); v != "" {
		status := domain.AuditStatus(v)
		filter.Status = &status
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeInvalidParam(w, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	events, err := h.audit.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, events)
}

// Page returns a handler serving the named dashboard page.
func (h *AccountHandler) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		httputil.WriteData(w, http.StatusOK, PageResponse{Page: name, User: principal(r)})
	}
}
