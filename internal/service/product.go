package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/repository"
	apperrors "github.com/roorq/storefront/pkg/errors"
	"github.com/roorq/storefront/pkg/slug"
)

var conditions = map[string]bool{
	domain.ConditionNew:     true,
	domain.ConditionLikeNew: true,
	domain.ConditionGood:    true,
	domain.ConditionFair:    true,
}

// ProductService implements catalog browsing and vendor listings.
type ProductService struct {
	repo   repository.ProductRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewProductService creates a new product service.
func NewProductService(repo repository.ProductRepository, logger *slog.Logger) *ProductService {
	return &ProductService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// ListDrops returns the drops that are live right now.
func (s *ProductService) ListDrops(ctx context.Context) ([]domain.Drop, error) {
	drops, err := s.repo.ListActiveDrops(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list drops: %w", err)
	}
	return drops, nil
}

// DropProducts returns a live drop and its active products.
func (s *ProductService) DropProducts(ctx context.Context, dropSlug string) (*domain.Drop, []domain.Product, error) {
	drop, err := s.repo.GetDropBySlug(ctx, dropSlug)
	if err != nil {
		return nil, nil, err
	}
	if !drop.IsLive(s.now().UTC()) {
		return nil, nil, apperrors.NotFound("drop", dropSlug)
	}

	products, err := s.repo.ListByDrop(ctx, drop.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list drop products: %w", err)
	}
	active := products[:0]
	for _, p := range products {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return drop, active, nil
}

// GetProduct returns an active product.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperrors.NotFound("product", id)
	}
	return p, nil
}

// ListVendorProducts returns every product of vendorID, inactive ones
// included.
func (s *ProductService) ListVendorProducts(ctx context.Context, vendorID string, page, perPage int) ([]domain.Product, int, error) {
	products, total, err := s.repo.ListByVendor(ctx, vendorID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list vendor products: %w", err)
	}
	return products, total, nil
}

// CreateProductInput holds the parameters for listing a new product.
type CreateProductInput struct {
	DropID      string
	Name        string
	Description string
	Price       int64
	Stock       int
	Size        string
	Condition   string
	ImageURL    string
}

// CreateProduct lists a new active product for vendorID.
func (s *ProductService) CreateProduct(ctx context.Context, vendorID string, input CreateProductInput) (*domain.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Price <= 0 {
		return nil, apperrors.InvalidInput("price must be positive")
	}
	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}
	condition := input.Condition
	if condition == "" {
		condition = domain.ConditionGood
	}
	if !conditions[condition] {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown condition %q", condition))
	}

	now := s.now().UTC()
	id := uuid.New().String()
	p := &domain.Product{
		ID:          id,
		DropID:      input.DropID,
		VendorID:    vendorID,
		Name:        name,
		Slug:        slug.WithSuffix(name, id[:8]),
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		Size:        input.Size,
		Condition:   condition,
		ImageURL:    input.ImageURL,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("vendor_id", vendorID),
		slog.String("slug", p.Slug),
	)
	return p, nil
}

// UpdateProduct changes a product owned by vendorID.
func (s *ProductService) UpdateProduct(ctx context.Context, vendorID, id string, update domain.ProductUpdate) (*domain.Product, error) {
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, apperrors.InvalidInput("product name must not be empty")
	}
	if update.Price != nil && *update.Price <= 0 {
		return nil, apperrors.InvalidInput("price must be positive")
	}
	if update.Stock != nil && *update.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}
	if update.Condition != nil && !conditions[*update.Condition] {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown condition %q", *update.Condition))
	}

	p, err := s.repo.Update(ctx, id, vendorID, update)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", id),
		slog.String("vendor_id", vendorID),
	)
	return p, nil
}
