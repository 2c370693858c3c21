package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/repository"
)

func TestAuditRepository_Insert(t *testing.T) {
	mock := newMock(t)
	repo := NewAuditRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs("audit-001", "user-001", "asha@campus.edu", "admin_access", "failed",
			"10.0.0.7", "curl/8.0", pgxmock.AnyArg(), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Insert(context.Background(), &domain.AuditEvent{
		ID:         "audit-001",
		UserID:     "user-001",
		Identifier: "asha@campus.edu",
		Action:     domain.ActionAdminAccess,
		Status:     domain.AuditFailed,
		IP:         "10.0.0.7",
		UserAgent:  "curl/8.0",
		Metadata:   map[string]string{"reason": domain.ReasonInsufficientRole},
		CreatedAt:  now,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_ListRecent_Filters(t *testing.T) {
	mock := newMock(t)
	repo := NewAuditRepository(mock)
	now := time.Now().UTC()
	action := domain.ActionAdminAccess
	status := domain.AuditFailed

	rows := pgxmock.NewRows([]string{"id", "user_id", "identifier", "action", "status", "ip", "user_agent", "metadata", "created_at"}).
		AddRow("audit-001", "", "10.0.0.7", "admin_access", "failed", "10.0.0.7", "", []byte(`{"reason":"not_authenticated"}`), now)
	mock.ExpectQuery("WHERE action = \\$1 AND status = \\$2").
		WithArgs("admin_access", "failed", 50).
		WillReturnRows(rows)

	events, err := repo.ListRecent(context.Background(), repository.AuditFilter{Action: &action, Status: &status})

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.ReasonNotAuthenticated, events[0].Reason())
	assert.Equal(t, domain.ActionAdminAccess, events[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_ListRecent_CapsLimit(t *testing.T) {
	mock := newMock(t)
	repo := NewAuditRepository(mock)

	mock.ExpectQuery("FROM audit_events").
		WithArgs(500).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "identifier", "action", "status", "ip", "user_agent", "metadata", "created_at"}))

	events, err := repo.ListRecent(context.Background(), repository.AuditFilter{Limit: 10000})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}
