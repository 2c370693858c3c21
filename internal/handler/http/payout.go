package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roorq/storefront/internal/csrf"
	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/repository"
	"github.com/roorq/storefront/internal/service"
	"github.com/roorq/storefront/pkg/httputil"
	"github.com/roorq/storefront/pkg/pagination"
)

// PayoutHandler handles vendor earnings and payout administration.
type PayoutHandler struct {
	service *service.PayoutService
	gate    *csrf.Gate
	logger  *slog.Logger
}

// NewPayoutHandler creates a new payout HTTP handler.
func NewPayoutHandler(svc *service.PayoutService, gate *csrf.Gate, logger *slog.Logger) *PayoutHandler {
	return &PayoutHandler{
		service: svc,
		gate:    gate,
		logger:  logger,
	}
}

// CreatePayoutRequest is the JSON request body for POST /api/admin/payouts.
type CreatePayoutRequest struct {
	csrfField
	VendorID string `json:"vendorId" validate:"required,uuid"`
}

// SettlePayoutRequest is the JSON request body for PATCH
// /api/admin/payouts/{id}.
type SettlePayoutRequest struct {
	csrfField
	Status        string `json:"status" validate:"required,oneof=paid failed"`
	PaidReference string `json:"paidReference" validate:"max=100"`
}

// ListVendorPayouts handles GET /api/vendor/payouts
func (h *PayoutHandler) ListVendorPayouts(w http.ResponseWriter, r *http.Request) {
	id := principal(r).ID
	h.list(w, r, repository.PayoutFilter{VendorID: &id})
}

// PendingEarnings handles GET /api/vendor/payouts/pending
func (h *PayoutHandler) PendingEarnings(w http.ResponseWriter, r *http.Request) {
	earnings, err := h.service.PendingEarnings(r.Context(), principal(r).ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, earnings)
}

// ListPayouts handles GET /api/admin/payouts
func (h *PayoutHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	var filter repository.PayoutFilter
	if v := r.URL.Query().Get("vendor_id"); v != "" {
		id, ok := httputil.ParseUUID(w, v)
		if !ok {
			return
		}
		s := id.String()
		filter.VendorID = &s
	}
	h.list(w, r, filter)
}

// CreatePayout handles POST /api/admin/payouts
func (h *PayoutHandler) CreatePayout(w http.ResponseWriter, r *http.Request) {
	var req CreatePayoutRequest
	if !decodeMutation(w, r, h.gate, &req, h.logger) {
		return
	}

	payout, err := h.service.CreatePayout(r.Context(), req.VendorID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, payout)
}

// SettlePayout handles PATCH /api/admin/payouts/{id}
func (h *PayoutHandler) SettlePayout(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req SettlePayoutRequest
	if !decodeMutation(w, r, h.gate, &req, h.logger) {
		return
	}

	if _, err := h.service.SettlePayout(r.Context(), id.String(), req.Status, req.PaidReference); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w)
}

func (h *PayoutHandler) list(w http.ResponseWriter, r *http.Request, filter repository.PayoutFilter) {
	p := pagination.FromRequest(r)
	filter.Page, filter.PerPage = p.Page, p.PerPage

	if v := r.URL.Query().Get("status"); v != "" {
		status, ok := domain.ParsePayoutStatus(v)
		if !ok {
			writeInvalidParam(w, "unknown payout status: "+v)
			return
		}
		filter.Status = &status
	}

	payouts, total, err := h.service.ListPayouts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(payouts, total, filter.Page, filter.PerPage))
}
