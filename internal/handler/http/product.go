package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roorq/storefront/internal/csrf"
	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/service"
	"github.com/roorq/storefront/pkg/httputil"
	"github.com/roorq/storefront/pkg/pagination"
)

// ProductHandler handles the public catalog and vendor listings.
type ProductHandler struct {
	service *service.ProductService
	gate    *csrf.Gate
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, gate *csrf.Gate, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		gate:    gate,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for listing a product.
type CreateProductRequest struct {
	csrfField
	DropID      string `json:"dropId" validate:"omitempty,uuid"`
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Price       int64  `json:"price" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0,lte=1000"`
	Size        string `json:"size" validate:"max=20"`
	Condition   string `json:"condition" validate:"omitempty,oneof=new like_new good fair"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
}

// UpdateProductRequest is the JSON request body for editing a product.
// Omitted fields are left unchanged.
type UpdateProductRequest struct {
	csrfField
	Name        *string `json:"name" validate:"omitempty,min=2,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Price       *int64  `json:"price" validate:"omitempty,gt=0"`
	Stock       *int    `json:"stock" validate:"omitempty,gte=0,lte=1000"`
	Size        *string `json:"size" validate:"omitempty,max=20"`
	Condition   *string `json:"condition" validate:"omitempty,oneof=new like_new good fair"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,url"`
	IsActive    *bool   `json:"isActive"`
}

// DropResponse is a drop with its products.
type DropResponse struct {
	Drop     *domain.Drop     `json:"drop"`
	Products []domain.Product `json:"products"`
}

// --- Public handlers ---

// ListDrops handles GET /api/drops
func (h *ProductHandler) ListDrops(w http.ResponseWriter, r *http.Request) {
	drops, err := h.service.ListDrops(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, drops)
}

// DropProducts handles GET /api/drops/{slug}/products
func (h *ProductHandler) DropProducts(w http.ResponseWriter, r *http.Request) {
	drop, products, err := h.service.DropProducts(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, DropResponse{Drop: drop, Products: products})
}

// GetProduct handles GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, product)
}

// --- Vendor handlers ---

// ListVendorProducts handles GET /api/vendor/products
func (h *ProductHandler) ListVendorProducts(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)

	products, total, err := h.service.ListVendorProducts(r.Context(), principal(r).ID, p.Page, p.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(products, total, p.Page, p.PerPage))
}

// CreateProduct handles POST /api/vendor/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeMutation(w, r, h.gate, &req, h.logger) {
		return
	}

	product, err := h.service.CreateProduct(r.Context(), principal(r).ID, service.CreateProductInput{
		DropID:      req.DropID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Size:        req.Size,
		Condition:   req.Condition,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, product)
}

// UpdateProduct handles PATCH /api/vendor/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateProductRequest
	if !decodeMutation(w, r, h.gate, &req, h.logger) {
		return
	}

	_, err := h.service.UpdateProduct(r.Context(), principal(r).ID, id.String(), domain.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Size:        req.Size,
		Condition:   req.Condition,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w)
}
