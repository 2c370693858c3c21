package postgres

import (
	"context"
	"encoding/json"
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

// ConcurrentTransitionMessage is the message of the Conflict returned when a
// conditional status write loses a race.
const ConcurrentTransitionMessage = "order status changed concurrently"

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order, reserves stock and inserts the items atomically.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateOrder", "INSERT INTO orders")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var addressJSON []byte
	if o.DeliveryAddress != nil {
		addressJSON, err = json.Marshal(o.DeliveryAddress)
		if err != nil {
			return fmt.Errorf("marshal delivery address: %w", err)
		}
	}

	orderQuery := `
		INSERT INTO orders (id, customer_id, customer_email, vendor_id, status, subtotal_amount, delivery_fee, total_amount, payment_method, delivery_address, cancel_reason, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.CustomerID,
		o.CustomerEmail,
		o.VendorID,
		string(o.Status),
		o.SubtotalAmount,
		o.DeliveryFee,
		o.TotalAmount,
		o.PaymentMethod,
		addressJSON,
		o.CancelReason,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	reserveQuery := `
		UPDATE products
		SET stock = stock - $1, updated_at = $2
		WHERE id = $3 AND is_active AND stock >= $1`

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, size, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, item := range o.Items {
		ct, err := tx.Exec(ctx, reserveQuery, item.Quantity, o.CreatedAt, item.ProductID)
		if err != nil {
			return fmt.Errorf("reserve stock: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.Conflict(fmt.Sprintf("%s is out of stock", item.Name))
		}

		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.Size,
			item.Price,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an order by its ID, eagerly loading its items. Status is
// returned as stored.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT
			o.id, o.customer_id, o.customer_email, COALESCE(o.vendor_id::text, ''), o.status,
			o.subtotal_amount, o.delivery_fee, o.total_amount, o.payment_method,
			o.delivery_address, o.cancel_reason, o.created_at, o.updated_at,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', oi.id,
						'order_id', oi.order_id,
						'product_id', oi.product_id,
						'name', oi.name,
						'size', oi.size,
						'price', oi.price,
						'quantity', oi.quantity,
						'subtotal', oi.price * oi.quantity
					) ORDER BY oi.created_at
				) FILTER (WHERE oi.id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE o.id = $1
		GROUP BY o.id`

	var (
		o           domain.Order
		addressJSON []byte
		itemsJSON   []byte
	)

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.CustomerID,
		&o.CustomerEmail,
		&o.VendorID,
		&o.Status,
		&o.SubtotalAmount,
		&o.DeliveryFee,
		&o.TotalAmount,
		&o.PaymentMethod,
		&addressJSON,
		&o.CancelReason,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if o.DeliveryAddress, err = decodeAddress(addressJSON); err != nil {
		return nil, err
	}

	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 && string(itemsJSON) != "null" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}

	return &o, nil
}

// List returns orders matching the given filter with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argIndex))
		args = append(args, *filter.CustomerID)
		argIndex++
	}

	if filter.VendorID != nil {
		conditions = append(conditions, fmt.Sprintf("vendor_id = $%d", argIndex))
		args = append(args, *filter.VendorID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argIndex))
		args = append(args, filter.Status.StoredForms())
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, customer_id, customer_email, COALESCE(vendor_id::text, ''), status, subtotal_amount, delivery_fee, total_amount, payment_method, delivery_address, cancel_reason, created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit, offset := limitOffset(filter.Page, filter.PerPage)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var (
			o           domain.Order
			addressJSON []byte
		)

		if err := rows.Scan(
			&o.ID,
			&o.CustomerID,
			&o.CustomerEmail,
			&o.VendorID,
			&o.Status,
			&o.SubtotalAmount,
			&o.DeliveryFee,
			&o.TotalAmount,
			&o.PaymentMethod,
			&addressJSON,
			&o.CancelReason,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}

		if o.DeliveryAddress, err = decodeAddress(addressJSON); err != nil {
			return nil, 0, err
		}

		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, totalCount, nil
}

// attachItems batch-loads the items of every order in one query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	orderIDs := make([]string, len(orders))
	for i := range orders {
		orderIDs[i] = orders[i].ID
	}

	query := `
		SELECT id, order_id, product_id, name, size, price, quantity, price * quantity AS subtotal
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return fmt.Errorf("batch load order items: %w", err)
	}
	defer rows.Close()

	itemsByOrderID := make(map[string][]domain.OrderItem, len(orders))
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.Size,
			&item.Price,
			&item.Quantity,
			&item.Subtotal,
		); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		itemsByOrderID[item.OrderID] = append(itemsByOrderID[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate batch order item rows: %w", err)
	}

	for i := range orders {
		if items, ok := itemsByOrderID[orders[i].ID]; ok {
			orders[i].Items = items
		} else {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return nil
}

// UpdateStatusIf writes next only while the stored status still normalizes to
// observed. Zero affected rows means another request won the race.
func (r *OrderRepository) UpdateStatusIf(ctx context.Context, id string, observed, next domain.Status, reason string) (err error) {
	query := `
		UPDATE orders
		SET status = $1, cancel_reason = $2, updated_at = $3
		WHERE id = $4 AND status = ANY($5)`

	ctx, end := database.TraceQuery(ctx, "TransitionOrder", query)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, query, string(next), reason, time.Now().UTC(), id, observed.StoredForms())
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Conflict(ConcurrentTransitionMessage)
	}

	if next == domain.StatusCancelled {
		restock := `
			UPDATE products p
			SET stock = p.stock + oi.quantity, updated_at = $2
			FROM order_items oi
			WHERE oi.order_id = $1 AND p.id = oi.product_id`
		if _, err := tx.Exec(ctx, restock, id, time.Now().UTC()); err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// StatusTotals groups orders by stored status and folds legacy aliases into
// their canonical status.
func (r *OrderRepository) StatusTotals(ctx context.Context, vendorID *string) ([]domain.StatusTotal, error) {
	query := `
		SELECT status, count(*), COALESCE(SUM(total_amount), 0)
		FROM orders`
	var args []any
	if vendorID != nil {
		query += " WHERE vendor_id = $1"
		args = append(args, *vendorID)
	}
	query += " GROUP BY status"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query status totals: %w", err)
	}
	defer rows.Close()

	byStatus := make(map[domain.Status]*domain.StatusTotal)
	for rows.Next() {
		var (
			raw   string
			count int
			total int64
		)
		if err := rows.Scan(&raw, &count, &total); err != nil {
			return nil, fmt.Errorf("scan status total: %w", err)
		}
		st := domain.NormalizeStatus(raw)
		agg, ok := byStatus[st]
		if !ok {
			agg = &domain.StatusTotal{Status: st}
			byStatus[st] = agg
		}
		agg.Count += count
		agg.Total += total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status totals: %w", err)
	}

	totals := make([]domain.StatusTotal, 0, len(domain.Statuses()))
	for _, st := range domain.Statuses() {
		if agg, ok := byStatus[st]; ok {
			totals = append(totals, *agg)
		} else {
			totals = append(totals, domain.StatusTotal{Status: st})
		}
	}
	return totals, nil
}

func decodeAddress(raw []byte) (*domain.DeliveryAddress, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var addr domain.DeliveryAddress
	if err := json.Unmarshal(raw, &addr); err != nil {
		return nil, fmt.Errorf("unmarshal delivery address: %w", err)
	}
	return &addr, nil
}

func limitOffset(page, perPage int) (int, int) {
	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}
	return limit, offset
}
