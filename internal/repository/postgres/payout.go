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

// ItemAlreadyClaimedMessage is the Conflict message when an order is already
// part of a pending or paid payout.
const ItemAlreadyClaimedMessage = "order already included in a payout"

const payoutColumns = `id, reference, vendor_id, gross_amount, commission_amount, net_amount,
	status, paid_reference, created_at, updated_at`

// PayoutRepository implements repository.PayoutRepository using PostgreSQL.
type PayoutRepository struct {
	pool database.DBTX
}

// NewPayoutRepository creates a new PostgreSQL-backed payout repository.
func NewPayoutRepository(pool database.DBTX) *PayoutRepository {
	return &PayoutRepository{pool: pool}
}

const unclaimedOrders = `
	FROM orders o
	WHERE o.vendor_id IS NOT NULL
	  AND o.status = ANY($1)
	  AND NOT EXISTS (
		SELECT 1 FROM payout_items pi
		JOIN payouts p ON p.id = pi.payout_id
		WHERE pi.order_id = o.id AND p.status <> 'failed'
	  )`

// PendingItems returns the vendor's collected orders not yet claimed by a
// pending or paid payout.
func (r *PayoutRepository) PendingItems(ctx context.Context, vendorID string) ([]domain.PayoutItem, error) {
	query := `SELECT o.id, o.total_amount` + unclaimedOrders + ` AND o.vendor_id = $2 ORDER BY o.created_at`

	rows, err := r.pool.Query(ctx, query, domain.StatusPaymentCollected.StoredForms(), vendorID)
	if err != nil {
		return nil, fmt.Errorf("query pending payout items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.PayoutItem, 0)
	for rows.Next() {
		var it domain.PayoutItem
		if err := rows.Scan(&it.OrderID, &it.Amount); err != nil {
			return nil, fmt.Errorf("scan payout item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payout items: %w", err)
	}
	return items, nil
}

// VendorsWithPendingItems lists the vendors that have unclaimed collected orders.
func (r *PayoutRepository) VendorsWithPendingItems(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT o.vendor_id::text` + unclaimedOrders + ` ORDER BY 1`

	rows, err := r.pool.Query(ctx, query, domain.StatusPaymentCollected.StoredForms())
	if err != nil {
		return nil, fmt.Errorf("query vendors with pending items: %w", err)
	}
	defer rows.Close()

	var vendors []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan vendor id: %w", err)
		}
		vendors = append(vendors, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendor ids: %w", err)
	}
	return vendors, nil
}

// Create inserts a payout and its items. Payout creation for one vendor is
// serialized with a transaction-scoped advisory lock.
func (r *PayoutRepository) Create(ctx context.Context, p *domain.Payout) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreatePayout", "INSERT INTO payouts")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, p.VendorID); err != nil {
		return fmt.Errorf("lock vendor payouts: %w", err)
	}

	orderIDs := make([]string, len(p.Items))
	for i, it := range p.Items {
		orderIDs[i] = it.OrderID
	}

	var claimed int
	err = tx.QueryRow(ctx, `
		SELECT count(*)
		FROM payout_items pi
		JOIN payouts po ON po.id = pi.payout_id
		WHERE pi.order_id = ANY($1) AND po.status <> 'failed'`, orderIDs).Scan(&claimed)
	if err != nil {
		return fmt.Errorf("check claimed items: %w", err)
	}
	if claimed > 0 {
		return apperrors.Conflict(ItemAlreadyClaimedMessage)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payouts (id, reference, vendor_id, gross_amount, commission_amount, net_amount, status, paid_reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID,
		p.Reference,
		p.VendorID,
		p.GrossAmount,
		p.CommissionAmount,
		p.NetAmount,
		string(p.Status),
		p.PaidReference,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}

	for _, it := range p.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO payout_items (payout_id, order_id, amount) VALUES ($1, $2, $3)`,
			p.ID, it.OrderID, it.Amount,
		)
		if err != nil {
			return fmt.Errorf("insert payout item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID returns a payout with its items.
func (r *PayoutRepository) GetByID(ctx context.Context, id string) (*domain.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE id = $1`

	p, err := scanPayout(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("payout", id)
		}
		return nil, fmt.Errorf("get payout: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT order_id, amount FROM payout_items WHERE payout_id = $1 ORDER BY order_id`, id)
	if err != nil {
		return nil, fmt.Errorf("get payout items: %w", err)
	}
	defer rows.Close()

	p.Items = make([]domain.PayoutItem, 0)
	for rows.Next() {
		var it domain.PayoutItem
		if err := rows.Scan(&it.OrderID, &it.Amount); err != nil {
			return nil, fmt.Errorf("scan payout item: %w", err)
		}
		p.Items = append(p.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payout items: %w", err)
	}
	return p, nil
}

// List returns payouts, newest first, without items.
func (r *PayoutRepository) List(ctx context.Context, filter repository.PayoutFilter) ([]domain.Payout, int, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.VendorID != nil {
		args = append(args, *filter.VendorID)
		conditions = append(conditions, fmt.Sprintf("vendor_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit, offset := limitOffset(filter.Page, filter.PerPage)
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM payouts
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, payoutColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	var total int
	payouts := make([]domain.Payout, 0)
	for rows.Next() {
		p, err := scanPayout(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan payout row: %w", err)
		}
		payouts = append(payouts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payout rows: %w", err)
	}
	return payouts, total, nil
}

// UpdateStatusIf settles a payout while its status is still observed.
func (r *PayoutRepository) UpdateStatusIf(ctx context.Context, id string, observed, next domain.PayoutStatus, paidReference string) (err error) {
	query := `
		UPDATE payouts
		SET status = $1, paid_reference = $2, updated_at = $3
		WHERE id = $4 AND status = $5`

	ctx, end := database.TraceQuery(ctx, "SettlePayout", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, string(next), paidReference, time.Now().UTC(), id, string(observed))
	if err != nil {
		return fmt.Errorf("update payout status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Conflict("payout status changed concurrently")
	}
	return nil
}

func scanPayout(row pgx.Row, extra ...any) (*domain.Payout, error) {
	var p domain.Payout
	dest := []any{
		&p.ID,
		&p.Reference,
		&p.VendorID,
		&p.GrossAmount,
		&p.CommissionAmount,
		&p.NetAmount,
		&p.Status,
		&p.PaidReference,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &p, nil
}
