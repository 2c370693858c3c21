package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/pkg/database"
	apperrors "github.com/roorq/storefront/pkg/errors"
)

const productColumns = `id, COALESCE(drop_id::text, ''), COALESCE(vendor_id::text, ''), name, slug,
	description, price, stock, size, condition, image_url, is_active, created_at, updated_at`

const uniqueViolation = "23505"

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func scanProduct(row pgx.Row, extra ...any) (*domain.Product, error) {
	var p domain.Product
	dest := []any{
		&p.ID,
		&p.DropID,
		&p.VendorID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.Size,
		&p.Condition,
		&p.ImageURL,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()
	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// ListActiveDrops returns drops that are live at now, soonest ending first.
func (r *ProductRepository) ListActiveDrops(ctx context.Context, now time.Time) ([]domain.Drop, error) {
	query := `
		SELECT id, name, slug, description, starts_at, ends_at, is_active
		FROM drops
		WHERE is_active AND starts_at <= $1 AND ends_at > $1
		ORDER BY ends_at`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list active drops: %w", err)
	}
	defer rows.Close()

	drops := make([]domain.Drop, 0)
	for rows.Next() {
		var d domain.Drop
		if err := rows.Scan(&d.ID, &d.Name, &d.Slug, &d.Description, &d.StartsAt, &d.EndsAt, &d.IsActive); err != nil {
			return nil, fmt.Errorf("scan drop row: %w", err)
		}
		drops = append(drops, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drop rows: %w", err)
	}
	return drops, nil
}

// GetDropBySlug returns the drop with the given slug.
func (r *ProductRepository) GetDropBySlug(ctx context.Context, slug string) (*domain.Drop, error) {
	query := `
		SELECT id, name, slug, description, starts_at, ends_at, is_active
		FROM drops
		WHERE slug = $1`

	var d domain.Drop
	err := r.pool.QueryRow(ctx, query, slug).Scan(&d.ID, &d.Name, &d.Slug, &d.Description, &d.StartsAt, &d.EndsAt, &d.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("drop", slug)
		}
		return nil, fmt.Errorf("get drop: %w", err)
	}
	return &d, nil
}

// ListByDrop returns the active products of a drop.
func (r *ProductRepository) ListByDrop(ctx context.Context, dropID string) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE drop_id = $1 AND is_active ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, dropID)
	if err != nil {
		return nil, fmt.Errorf("list drop products: %w", err)
	}
	return collectProducts(rows)
}

// GetByID returns a product by id.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByIDs returns the products with the given ids. Missing ids are skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	return collectProducts(rows)
}

// ListByVendor returns a vendor's products, newest first, with the total count.
func (r *ProductRepository) ListByVendor(ctx context.Context, vendorID string, page, perPage int) ([]domain.Product, int, error) {
	limit, offset := limitOffset(page, perPage)
	query := `
		SELECT ` + productColumns + `, count(*) OVER() AS total_count
		FROM products
		WHERE vendor_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, vendorID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list vendor products: %w", err)
	}
	defer rows.Close()

	var total int
	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, total, nil
}

// Create inserts a product. A duplicate slug is AlreadyExists.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (id, drop_id, vendor_id, name, slug, description, price, stock, size, condition, image_url, is_active, created_at, updated_at)
		VALUES ($1, NULLIF($2, '')::uuid, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	ctx, end := database.TraceQuery(ctx, "CreateProduct", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.DropID,
		p.VendorID,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.Stock,
		p.Size,
		p.Condition,
		p.ImageURL,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of update to a product owned by vendorID.
func (r *ProductRepository) Update(ctx context.Context, id, vendorID string, update domain.ProductUpdate) (*domain.Product, error) {
	var (
		sets     []string
		args     []any
		argIndex = 1
	)
	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Price != nil {
		add("price", *update.Price)
	}
	if update.Stock != nil {
		add("stock", *update.Stock)
	}
	if update.Size != nil {
		add("size", *update.Size)
	}
	if update.Condition != nil {
		add("condition", *update.Condition)
	}
	if update.ImageURL != nil {
		add("image_url", *update.ImageURL)
	}
	if update.IsActive != nil {
		add("is_active", *update.IsActive)
	}
	add("updated_at", time.Now().UTC())

	args = append(args, id, vendorID)
	query := fmt.Sprintf(
		`UPDATE products SET %s WHERE id = $%d AND vendor_id = $%d RETURNING %s`,
		strings.Join(sets, ", "), argIndex, argIndex+1, productColumns,
	)

	p, err := scanProduct(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}
