package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roorq/storefront/internal/domain"
	apperrors "github.com/roorq/storefront/pkg/errors"
)

func TestUserRepository_LookupRole_Vendor(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	rows := pgxmock.NewRows([]string{"id", "email", "role", "user_type", "vendor_status"}).
		AddRow("user-001", "hub@campus.edu", "customer", "vendor", "approved")
	mock.ExpectQuery("SELECT id, email, role, user_type").WithArgs("user-001").WillReturnRows(rows)

	rec, err := repo.LookupRole(context.Background(), "user-001")

	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, rec.Role)
	assert.Equal(t, domain.VendorApproved, rec.VendorStatus)
	assert.True(t, rec.IsVendor())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_LookupRole_UnknownRoleNotGranted(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	rows := pgxmock.NewRows([]string{"id", "email", "role", "user_type", "vendor_status"}).
		AddRow("user-002", "x@campus.edu", "root", "customer", "")
	mock.ExpectQuery("SELECT id, email, role, user_type").WithArgs("user-002").WillReturnRows(rows)

	rec, err := repo.LookupRole(context.Background(), "user-002")

	require.NoError(t, err)
	assert.Equal(t, domain.RoleUnknown, rec.Role)
	assert.False(t, rec.HasVendorProfile())
}

func TestUserRepository_LookupRole_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("SELECT id, email, role, user_type").WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := repo.LookupRole(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestUserRepository_LookupRole_QueryError(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("SELECT id, email, role, user_type").WillReturnError(errors.New("connection reset"))

	_, err := repo.LookupRole(context.Background(), "user-001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup role")
}

func TestUserRepository_ReferralStats(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("FROM users u").
		WithArgs("user-001", []string{"delivered", "payment_collected"}).
		WillReturnRows(pgxmock.NewRows([]string{"code", "referred", "qualified"}).AddRow("ROORQ42", 5, 2))

	code, referred, qualified, err := repo.ReferralStats(context.Background(), "user-001")

	require.NoError(t, err)
	assert.Equal(t, "ROORQ42", code)
	assert.Equal(t, 5, referred)
	assert.Equal(t, 2, qualified)
	assert.NoError(t, mock.ExpectationsWereMet())
}
