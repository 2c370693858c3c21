package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/repository"
	"github.com/roorq/storefront/pkg/database"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditRepository implements repository.AuditRepository using PostgreSQL.
type AuditRepository struct {
	pool database.DBTX
}

// NewAuditRepository creates a new PostgreSQL-backed audit repository.
func NewAuditRepository(pool database.DBTX) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert appends an audit event.
func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEvent) (err error) {
	query := `
		INSERT INTO audit_events (id, user_id, identifier, action, status, ip, user_agent, metadata, created_at)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "InsertAuditEvent", query)
	defer func() { end(err) }()

	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		e.ID,
		e.UserID,
		e.Identifier,
		string(e.Action),
		string(e.Status),
		e.IP,
		e.UserAgent,
		metadataJSON,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListRecent returns the latest audit events, newest first.
func (r *AuditRepository) ListRecent(ctx context.Context, filter repository.AuditFilter) ([]domain.AuditEvent, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Action != nil {
		args = append(args, string(*filter.Action))
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, COALESCE(user_id::text, ''), identifier, action, status, ip, user_agent, metadata, created_at
		FROM audit_events
		%s
		ORDER BY created_at DESC
		LIMIT $%d`, where, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.AuditEvent, 0)
	for rows.Next() {
		var (
			e            domain.AuditEvent
			metadataJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Identifier, &e.Action, &e.Status, &e.IP, &e.UserAgent, &metadataJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
