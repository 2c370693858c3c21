package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/roorq/storefront/internal/csrf"
	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/repository"
	"github.com/roorq/storefront/internal/service"
	"github.com/roorq/storefront/pkg/httputil"
	"github.com/roorq/storefront/pkg/pagination"
)

// VendorHandler handles vendor profile, KYC and vendor administration
// endpoints.
type VendorHandler struct {
	service  *service.VendorService
	gate     *csrf.Gate
	maxBytes int64
	logger   *slog.Logger
}

// NewVendorHandler creates a new vendor HTTP handler. maxBytes bounds a
// single document upload.
func NewVendorHandler(svc *service.VendorService, gate *csrf.Gate, maxBytes int64, logger *slog.Logger) *VendorHandler {
	return &VendorHandler{
		service:  svc,
		gate:     gate,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// --- Request DTOs ---

// UpdateProfileRequest is the JSON request body for PATCH /api/vendor/profile.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	csrfField
	StoreName         *string `json:"storeName" validate:"omitempty,min=2,max=80"`
	StoreDescription  *string `json:"storeDescription" validate:"omitempty,max=500"`
	StoreLogoURL      *string `json:"storeLogoUrl" validate:"omitempty,url"`
	BankAccountName   *string `json:"bankAccountName" validate:"omitempty,max=100"`
	BankAccountNumber *string `json:"bankAccountNumber" validate:"omitempty,numeric,min=9,max=18"`
	BankIFSC          *string `json:"bankIfsc" validate:"omitempty,ifsc"`
	UPIID             *string `json:"upiId" validate:"omitempty,upi"`
	BusinessName      *string `json:"businessName" validate:"omitempty,max=120"`
	GSTIN             *string `json:"gstin" validate:"omitempty,gstin"`
	PAN               *string `json:"pan" validate:"omitempty,pan"`
}

// SetVendorStatusRequest is the JSON request body for PATCH
// /api/admin/vendors/{id}.
type SetVendorStatusRequest struct {
	csrfField
	Status string `json:"status" validate:"required,oneof=approved rejected suspended under_review documents_pending"`
	Reason string `json:"reason" validate:"max=500"`
}

// --- Vendor handlers ---

// GetProfile handles GET /api/vendor/profile
func (h *VendorHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetProfile(r.Context(), principal(r).ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, profile)
}

// UpdateProfile handles PATCH /api/vendor/profile
func (h *VendorHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeMutation(w, r, h.gate, &req, h.logger) {
		return
	}

	update := domain.VendorProfileUpdate{
		StoreName:         req.StoreName,
		StoreDescription:  req.StoreDescription,
		StoreLogoURL:      req.StoreLogoURL,
		BankAccountName:   req.BankAccountName,
		BankAccountNumber: req.BankAccountNumber,
		BankIFSC:          req.BankIFSC,
		UPIID:             req.UPIID,
		BusinessName:      req.BusinessName,
		GSTIN:             req.GSTIN,
		PAN:               req.PAN,
	}

	if _, err := h.service.UpdateProfile(r.Context(), principal(r).ID, update); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w)
}

// UploadDocument handles POST /api/vendor/documents (multipart/form-data
// with fields docType, csrf and file).
func (h *VendorHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+maxBodyBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.Response{
				Error: "document is too large",
				Code:  "PAYLOAD_TOO_LARGE",
			})
			return
		}
		writeInvalidParam(w, "expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	if err := h.gate.Validate(r, csrf.TokenFromRequest(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeInvalidParam(w, "file is required")
		return
	}
	defer file.Close()

	doc, err := h.service.UploadDocument(r.Context(), principal(r).ID, service.UploadDocumentInput{
		DocType:     strings.TrimSpace(r.FormValue("docType")),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        file,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, doc)
}

// ListDocuments handles GET /api/vendor/documents
func (h *VendorHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListDocuments(r.Context(), principal(r).ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, docs)
}

// --- Admin handlers ---

// ListVendors handles GET /api/admin/vendors
func (h *VendorHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)
	filter := repository.VendorFilter{Page: p.Page, PerPage: p.PerPage}

	if v := r.URL.Query().Get("status"); v != "" {
		status, ok := domain.ParseVendorStatus(v)
		if !ok {
			writeInvalidParam(w, "unknown vendor status: "+v)
			return
		}
		filter.Status = &status
	}

	vendors, total, err := h.service.ListVendors(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	for i := range vendors {
		vendors[i].BankAccountNumber = vendors[i].MaskedAccountNumber()
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(vendors, total, filter.Page, filter.PerPage))
}

// SetVendorStatus handles PATCH /api/admin/vendors/{id}
func (h *VendorHandler) SetVendorStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req SetVendorStatusRequest
	if !decodeMutation(w, r, h.gate, &req, h.logger) {
		return
	}

	if _, err := h.service.SetStatus(r.Context(), id.String(), req.Status, req.Reason); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w)
}

// VendorDocuments handles GET /api/admin/vendors/{id}/documents
func (h *VendorHandler) VendorDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	links, err := h.service.DocumentLinks(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteData(w, http.StatusOK, links)
}
