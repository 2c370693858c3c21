package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/event"
	"github.com/roorq/storefront/internal/repository"
	"github.com/roorq/storefront/internal/storage"
	apperrors "github.com/roorq/storefront/pkg/errors"
)

// RoleInvalidator drops a cached role record after a vendor row changes.
type RoleInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// DocumentPolicy bounds KYC uploads and their download links.
type DocumentPolicy struct {
	MaxBytes   int64
	PresignTTL time.Duration
}

// VendorService implements vendor onboarding, profile and KYC operations.
type VendorService struct {
	vendors   repository.VendorRepository
	documents repository.DocumentRepository
	store     storage.Store
	roles     RoleInvalidator
	producer  *event.Producer
	policy    DocumentPolicy
	logger    *slog.Logger
}

// NewVendorService creates a new vendor service.
func NewVendorService(
	vendors repository.VendorRepository,
	documents repository.DocumentRepository,
	store storage.Store,
	roles RoleInvalidator,
	producer *event.Producer,
	policy DocumentPolicy,
	logger *slog.Logger,
) *VendorService {
	return &VendorService{
		vendors:   vendors,
		documents: documents,
		store:     store,
		roles:     roles,
		producer:  producer,
		policy:    policy,
		logger:    logger,
	}
}

// GetProfile returns the vendor profile of userID.
func (s *VendorService) GetProfile(ctx context.Context, userID string) (*domain.VendorProfile, error) {
	return s.vendors.GetProfile(ctx, userID)
}

// UpdateProfile applies the vendor-editable fields and returns the stored
// profile.
func (s *VendorService) UpdateProfile(ctx context.Context, userID string, update domain.VendorProfileUpdate) (*domain.VendorProfile, error) {
	if update.IsEmpty() {
		return nil, apperrors.InvalidInput("no profile fields to update")
	}
	if update.StoreName != nil && strings.TrimSpace(*update.StoreName) == "" {
		return nil, apperrors.InvalidInput("store name must not be empty")
	}

	if err := s.vendors.UpdateProfile(ctx, userID, update); err != nil {
		return nil, err
	}
	// Profile fields do not affect access; a failed invalidation is logged.
	_ = s.invalidate(ctx, userID)

	s.logger.InfoContext(ctx, "vendor profile updated", slog.String("vendor_id", userID))
	return s.vendors.GetProfile(ctx, userID)
}

// ListVendors returns vendor profiles, optionally filtered by status.
func (s *VendorService) ListVendors(ctx context.Context, filter repository.VendorFilter) ([]domain.VendorProfile, int, error) {
	vendors, total, err := s.vendors.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list vendors: %w", err)
	}
	return vendors, total, nil
}

// SetStatus moves a vendor to status. Suspending or rejecting requires a
// reason.
func (s *VendorService) SetStatus(ctx context.Context, vendorID, status, reason string) (*domain.VendorProfile, error) {
	next, ok := domain.ParseVendorStatus(status)
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown vendor status %q", status))
	}
	reason = strings.TrimSpace(reason)
	if next.RequiresReason() && reason == "" {
		return nil, apperrors.InvalidInput(fmt.Sprintf("a reason is required to mark a vendor %s", next))
	}

	profile, err := s.vendors.GetProfile(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	from := profile.Status

	if err := s.vendors.SetStatus(ctx, vendorID, next, reason); err != nil {
		return nil, err
	}
	// The change is not reported as done until the cached role is gone.
	if err := s.invalidate(ctx, vendorID); err != nil {
		return nil, apperrors.Unavailable("Vendor status saved but access could not be refreshed, retry the change")
	}

	profile.Status = next
	profile.StatusReason = reason
	profile.UpdatedAt = time.Now().UTC()

	if err := s.producer.PublishVendorStatusChanged(ctx, profile, from); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish vendor.status_changed event",
			slog.String("vendor_id", vendorID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "vendor status changed",
		slog.String("vendor_id", vendorID),
		slog.String("from", string(from)),
		slog.String("to", string(next)),
	)
	return profile, nil
}

// UploadDocumentInput holds a KYC file being uploaded.
type UploadDocumentInput struct {
	DocType     string
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadDocument stores a KYC document. The first upload of a
// documents_pending vendor moves it to under_review.
func (s *VendorService) UploadDocument(ctx context.Context, vendorID string, input UploadDocumentInput) (*domain.VendorDocument, error) {
	docType, ok := domain.ParseDocumentType(input.DocType)
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown document type %q", input.DocType))
	}
	ext, ok := domain.DocumentExtension(input.ContentType)
	if !ok {
		return nil, apperrors.InvalidInput("document must be a PDF, JPEG or PNG file")
	}
	if input.Size <= 0 {
		return nil, apperrors.InvalidInput("document is empty")
	}
	if input.Size > s.policy.MaxBytes {
		return nil, apperrors.InvalidInput(fmt.Sprintf("document exceeds %d bytes", s.policy.MaxBytes))
	}

	doc := &domain.VendorDocument{
		ID:          uuid.New().String(),
		VendorID:    vendorID,
		DocType:     docType,
		FileName:    path.Base(input.FileName),
		ContentType: input.ContentType,
		Size:        input.Size,
		CreatedAt:   time.Now().UTC(),
	}
	doc.ObjectKey = path.Join(vendorID, string(docType), doc.ID+ext)

	if err := s.store.Put(ctx, &storage.PutInput{
		Key:         doc.ObjectKey,
		ContentType: doc.ContentType,
		Size:        doc.Size,
		Data:        input.Data,
	}); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		if delErr := s.store.Delete(ctx, doc.ObjectKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove orphaned document",
				slog.String("key", doc.ObjectKey),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, err
	}

	moved, err := s.vendors.MarkDocumentsSubmitted(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if moved {
		_ = s.invalidate(ctx, vendorID)
		s.logger.InfoContext(ctx, "vendor moved to review", slog.String("vendor_id", vendorID))
	}

	s.logger.InfoContext(ctx, "vendor document uploaded",
		slog.String("vendor_id", vendorID),
		slog.String("doc_type", string(docType)),
		slog.Int64("size", doc.Size),
	)
	return doc, nil
}

// ListDocuments returns the vendor's uploaded documents without links.
func (s *VendorService) ListDocuments(ctx context.Context, vendorID string) ([]domain.VendorDocument, error) {
	docs, err := s.documents.ListByVendor(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// DocumentLinks returns the vendor's documents with presigned download URLs
// for admin review.
func (s *VendorService) DocumentLinks(ctx context.Context, vendorID string) ([]domain.DocumentLink, error) {
	if _, err := s.vendors.GetProfile(ctx, vendorID); err != nil {
		return nil, err
	}
	docs, err := s.ListDocuments(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	expires := time.Now().UTC().Add(s.policy.PresignTTL)
	links := make([]domain.DocumentLink, 0, len(docs))
	for _, d := range docs {
		url, err := s.store.PresignGet(ctx, d.ObjectKey, s.policy.PresignTTL)
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", d.ID, err)
		}
		links = append(links, domain.DocumentLink{VendorDocument: d, URL: url, ExpiresAt: expires})
	}
	return links, nil
}

func (s *VendorService) invalidate(ctx context.Context, userID string) error {
	if s.roles == nil {
		return nil
	}
	if err := s.roles.Invalidate(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cached role",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
