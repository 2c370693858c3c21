package domain

import "time"

// AuditAction names the operation an audit event records.
type AuditAction string

// Audit actions written by the access guard.
const (
	ActionAdminAccess  AuditAction = "admin_access"
	ActionVendorAccess AuditAction = "vendor_access"
	ActionUserAccess   AuditAction = "user_access"
)

// AuditStatus is the outcome recorded on an audit event.
type AuditStatus string

// Audit statuses.
const (
	AuditSuccess AuditStatus = "success"
	AuditFailed  AuditStatus = "failed"
	AuditBlocked AuditStatus = "blocked"
)

// Reasons stored under metadata["reason"].
const (
	ReasonNotAuthenticated     = "not_authenticated"
	ReasonInsufficientRole     = "insufficient_role"
	ReasonRoleCheckFailed      = "role_check_failed"
	ReasonVendorProfileMissing = "vendor_profile_missing"
	ReasonVendorStatusPrefix   = "vendor_status_"
)

// AuditEvent is an append-only forensic record.
type AuditEvent struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id,omitempty"`
	Identifier string            `json:"identifier"`
	Action     AuditAction       `json:"action"`
	Status     AuditStatus       `json:"status"`
	IP         string            `json:"ip,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Reason returns metadata["reason"].
func (e *AuditEvent) Reason() string {
	return e.Metadata["reason"]
}
