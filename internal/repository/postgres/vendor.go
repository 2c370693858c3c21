package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/repository"
	"github.com/roorq/storefront/pkg/database"
	apperrors "github.com/roorq/storefront/pkg/errors"
)

const vendorColumns = `id, email, full_name, vendor_status, vendor_status_reason,
	store_name, store_description, store_logo_url,
	bank_account_name, bank_account_number, bank_ifsc, upi_id,
	business_name, gstin, pan, created_at, updated_at`

// VendorRepository implements repository.VendorRepository on the users table.
// A vendor profile exists when vendor_status is set.
type VendorRepository struct {
	pool database.DBTX
}

// NewVendorRepository creates a new PostgreSQL-backed vendor repository.
func NewVendorRepository(pool database.DBTX) *VendorRepository {
	return &VendorRepository{pool: pool}
}

func scanVendor(row pgx.Row, extra ...any) (*domain.VendorProfile, error) {
	var p domain.VendorProfile
	dest := []any{
		&p.UserID,
		&p.Email,
		&p.FullName,
		&p.Status,
		&p.StatusReason,
		&p.StoreName,
		&p.StoreDescription,
		&p.StoreLogoURL,
		&p.BankAccountName,
		&p.BankAccountNumber,
		&p.BankIFSC,
		&p.UPIID,
		&p.BusinessName,
		&p.GSTIN,
		&p.PAN,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile returns the vendor profile of userID.
func (r *VendorRepository) GetProfile(ctx context.Context, userID string) (*domain.VendorProfile, error) {
	query := `SELECT ` + vendorColumns + ` FROM users WHERE id = $1 AND vendor_status IS NOT NULL`

	p, err := scanVendor(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("vendor", userID)
		}
		return nil, fmt.Errorf("get vendor profile: %w", err)
	}
	return p, nil
}

// UpdateProfile writes the non-nil fields of update.
func (r *VendorRepository) UpdateProfile(ctx context.Context, userID string, update domain.VendorProfileUpdate) (err error) {
	var (
		sets     []string
		args     []any
		argIndex = 1
	)
	set := func(column string, value *string) {
		if value == nil {
			return
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, *value)
		argIndex++
	}

	set("store_name", update.StoreName)
	set("store_description", update.StoreDescription)
	set("store_logo_url", update.StoreLogoURL)
	set("bank_account_name", update.BankAccountName)
	set("bank_account_number", update.BankAccountNumber)
	set("bank_ifsc", update.BankIFSC)
	set("upi_id", update.UPIID)
	set("business_name", update.BusinessName)
	set("gstin", update.GSTIN)
	set("pan", update.PAN)

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now().UTC(), userID)

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d AND vendor_status IS NOT NULL`,
		strings.Join(sets, ", "), argIndex+1,
	)

	ctx, end := database.TraceQuery(ctx, "UpdateVendorProfile", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update vendor profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("vendor", userID)
	}
	return nil
}

// List returns vendors, newest first, optionally filtered by status.
func (r *VendorRepository) List(ctx context.Context, filter repository.VendorFilter) ([]domain.VendorProfile, int, error) {
	where := "WHERE vendor_status IS NOT NULL"
	var args []any
	if filter.Status != nil {
		where += " AND vendor_status = $1"
		args = append(args, string(*filter.Status))
	}

	limit, offset := limitOffset(filter.Page, filter.PerPage)
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM users
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		vendorColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var total int
	vendors := make([]domain.VendorProfile, 0)
	for rows.Next() {
		p, err := scanVendor(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan vendor row: %w", err)
		}
		vendors = append(vendors, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate vendor rows: %w", err)
	}
	return vendors, total, nil
}

// SetStatus changes a vendor's status and reason.
func (r *VendorRepository) SetStatus(ctx context.Context, userID string, status domain.VendorStatus, reason string) (err error) {
	query := `
		UPDATE users
		SET vendor_status = $1, vendor_status_reason = $2, updated_at = $3
		WHERE id = $4 AND vendor_status IS NOT NULL`

	ctx, end := database.TraceQuery(ctx, "SetVendorStatus", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, string(status), reason, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("set vendor status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("vendor", userID)
	}
	return nil
}

// MarkDocumentsSubmitted moves a documents_pending vendor to under_review.
func (r *VendorRepository) MarkDocumentsSubmitted(ctx context.Context, userID string) (bool, error) {
	query := `
		UPDATE users
		SET vendor_status = $1, updated_at = $2
		WHERE id = $3 AND vendor_status = $4`

	ct, err := r.pool.Exec(ctx, query,
		string(domain.VendorUnderReview), time.Now().UTC(), userID, string(domain.VendorDocumentsPending))
	if err != nil {
		return false, fmt.Errorf("mark documents submitted: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}
