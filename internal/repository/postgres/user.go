package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/pkg/database"
	apperrors "github.com/roorq/storefront/pkg/errors"
)

// UserRepository serves role lookups and referral statistics from the users
// table. It must be built on the privileged pool.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// LookupRole returns the stored role, user type and vendor status of a user.
func (r *UserRepository) LookupRole(ctx context.Context, userID string) (rec *domain.RoleRecord, err error) {
	query := `
		SELECT id, email, role, user_type, COALESCE(vendor_status, '')
		FROM users
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "LookupRole", query)
	defer func() { end(err) }()

	var (
		record domain.RoleRecord
		role   string
		status string
	)
	err = r.pool.QueryRow(ctx, query, userID).Scan(
		&record.UserID,
		&record.Email,
		&role,
		&record.UserType,
		&status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, fmt.Errorf("lookup role: %w", err)
	}

	record.Role = domain.ParseRole(role)
	record.VendorStatus = domain.VendorStatus(status)
	return &record, nil
}

// ReferralStats counts users who signed up with userID's referral code and
// how many of them have a delivered or collected order.
func (r *UserRepository) ReferralStats(ctx context.Context, userID string) (string, int, int, error) {
	query := `
		SELECT
			COALESCE(u.referral_code, ''),
			count(ref.id),
			count(ref.id) FILTER (WHERE EXISTS (
				SELECT 1 FROM orders o
				WHERE o.customer_id = ref.id AND o.status = ANY($2)
			))
		FROM users u
		LEFT JOIN users ref ON ref.referred_by = u.id
		WHERE u.id = $1
		GROUP BY u.id`

	qualifying := append(domain.StatusDelivered.StoredForms(), domain.StatusPaymentCollected.StoredForms()...)

	var (
		code      string
		referred  int
		qualified int
	)
	err := r.pool.QueryRow(ctx, query, userID, qualifying).Scan(&code, &referred, &qualified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, 0, apperrors.NotFound("user", userID)
		}
		return "", 0, 0, fmt.Errorf("referral stats: %w", err)
	}
	return code, referred, qualified, nil
}
