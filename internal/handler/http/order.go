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

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	gate    *csrf.Gate
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, gate *csrf.Gate, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		gate:    gate,
		logger:  logger,
	}
}

// --- Request DTOs ---

// OrderItemRequest is one requested order line.
type OrderItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=10"`
}

// AddressRequest is the on-campus drop point of an order.
type AddressRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Phone  string `json:"phone" validate:"required,numeric,min=10,max=15"`
	Hostel string `json:"hostel" validate:"required,max=100"`
	Room   string `json:"room" validate:"required,max=20"`
	Notes  string `json:"notes" validate:"max=500"`
}

// PlaceOrderRequest is the JSON request body for placing a COD order.
type PlaceOrderRequest struct {
	csrfField
	Items   []OrderItemRequest `json:"items" validate:"required,min=1,max=20,dive"`
	Address AddressRequest     `json:"address"`
}

// CancelOrderRequest is the JSON request body for cancelling an order.
type CancelOrderRequest struct {
	csrfField
	Reason string `json:"reason" validate:"max=500"`
}

// UpdateStatusRequest is the JSON request body for moving an order.
type UpdateStatusRequest struct {
	csrfField
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

// --- Customer handlers ---

// PlaceOrder handles POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !decodeMutation(w, r, h.gate, &req, h.logger) {
		return
	}

	items := make([]service.PlaceOrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.PlaceOrderItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	order, err := h.service.PlaceOrder(r.Context(), principal(r), service.PlaceOrderInput{
		Items: items,
		Address: domain.DeliveryAddress{
			Name:   req.Address.Name,
			Phone:  req.Address.Phone,
			Hostel: req.Address.Hostel,
			Room:   req.Address.Room,
			Notes:  req.Address.Notes,
		},
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, order)
}

// ListMyOrders handles GET /api/orders
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	id := principal(r).ID
	h.list(w, r, repository.OrderFilter{CustomerID: &id})
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), principal(r), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, order)
}

// CancelOrder handles POST /api/orders/{id}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req CancelOrderRequest
	if !decodeMutation(w, r, h.gate, &req, h.logger) {
		return
	}

	if _, err := h.service.CancelOrder(r.Context(), principal(r), id.String(), req.Reason); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w)
}

// --- Vendor handlers ---

// ListVendorOrders handles GET /api/vendor/orders
func (h *OrderHandler) ListVendorOrders(w http.ResponseWriter, r *http.Request) {
	id := principal(r).ID
	h.list(w, r, repository.OrderFilter{VendorID: &id})
}

// UpdateVendorOrder handles PATCH /api/vendor/orders/{id}
func (h *OrderHandler) UpdateVendorOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeMutation(w, r, h.gate, &req, h.logger) {
		return
	}

	if _, err := h.service.TransitionAsVendor(r.Context(), principal(r).ID, id.String(), req.Status); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w)
}

// --- Admin handlers ---

// ListAllOrders handles GET /api/admin/orders
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, repository.OrderFilter{})
}

// UpdateOrder handles PATCH /api/admin/orders/{id}
func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeMutation(w, r, h.gate, &req, h.logger) {
		return
	}

	if _, err := h.service.TransitionAsAdmin(r.Context(), id.String(), req.Status, req.Reason); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w)
}

// Analytics handles GET /api/admin/analytics
func (h *OrderHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	var vendorID *string
	if v := r.URL.Query().Get("vendor_id"); v != "" {
		id, ok := httputil.ParseUUID(w, v)
		if !ok {
			return
		}
		s := id.String()
		vendorID = &s
	}

	totals, err := h.service.Analytics(r.Context(), vendorID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, totals)
}

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request, filter repository.OrderFilter) {
	p := pagination.FromRequest(r)
	filter.Page, filter.PerPage = p.Page, p.PerPage

	if v := r.URL.Query().Get("status"); v != "" {
		status, err := domain.ParseStatus(v)
		if err != nil {
			writeInvalidParam(w, "unknown order status: "+v)
			return
		}
		filter.Status = &status
	}

	orders, total, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(orders, total, filter.Page, filter.PerPage))
}
