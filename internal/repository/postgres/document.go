package postgres

import (
	"context"
	"fmt"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/pkg/database"
)

// DocumentRepository implements repository.DocumentRepository using PostgreSQL.
type DocumentRepository struct {
	pool database.DBTX
}

// NewDocumentRepository creates a new PostgreSQL-backed document repository.
func NewDocumentRepository(pool database.DBTX) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// Create records an uploaded document.
func (r *DocumentRepository) Create(ctx context.Context, d *domain.VendorDocument) error {
	query := `
		INSERT INTO vendor_documents (id, vendor_id, doc_type, object_key, file_name, content_type, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		d.ID,
		d.VendorID,
		string(d.DocType),
		d.ObjectKey,
		d.FileName,
		d.ContentType,
		d.Size,
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert vendor document: %w", err)
	}
	return nil
}

// ListByVendor returns a vendor's documents, newest first.
func (r *DocumentRepository) ListByVendor(ctx context.Context, vendorID string) ([]domain.VendorDocument, error) {
	query := `
		SELECT id, vendor_id, doc_type, object_key, file_name, content_type, size, created_at
		FROM vendor_documents
		WHERE vendor_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, vendorID)
	if err != nil {
		return nil, fmt.Errorf("list vendor documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.VendorDocument, 0)
	for rows.Next() {
		var d domain.VendorDocument
		if err := rows.Scan(&d.ID, &d.VendorID, &d.DocType, &d.ObjectKey, &d.FileName, &d.ContentType, &d.Size, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vendor document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendor documents: %w", err)
	}
	return docs, nil
}
