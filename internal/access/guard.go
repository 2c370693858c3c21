// Package access resolves the caller behind a request and decides whether it
// may run an operation. A denied request never reaches the next handler.
package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/repository"
	"github.com/roorq/storefront/internal/session"
	"github.com/roorq/storefront/pkg/httputil"
	"github.com/roorq/storefront/pkg/logger"
	"github.com/roorq/storefront/pkg/middleware"
)

// Capability is the privilege level an operation requires.
type Capability int

const (
	// Authenticated admits any signed-in user with a known role.
	Authenticated Capability = iota
	// Vendor admits users whose user_type is vendor and who have a vendor
	// profile that is not suspended or rejected.
	Vendor
	// VendorApproved is Vendor restricted to approved vendors.
	VendorApproved
	// Admin admits admin and super_admin.
	Admin
)

// Action returns the audit action recorded for failures at c.
func (c Capability) Action() domain.AuditAction {
	switch c {
	case Admin:
		return domain.ActionAdminAccess
	case Vendor, VendorApproved:
		return domain.ActionVendorAccess
	default:
		return domain.ActionUserAccess
	}
}

// Mode selects how a denial is answered.
type Mode int

const (
	// API answers denials with a JSON 401 or 403.
	API Mode = iota
	// Page answers denials with a 303 redirect.
	Page
)

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/login"

var denials = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "roorq_access_denials_total",
	Help: "Requests denied by the access guard.",
}, []string{"action", "reason"})

// Denial describes why a request was refused.
type Denial struct {
	Status      int
	Reason      string
	AuditStatus domain.AuditStatus
	Message     string
}

func unauthenticated() *Denial {
	return &Denial{
		Status:      http.StatusUnauthorized,
		Reason:      domain.ReasonNotAuthenticated,
		AuditStatus: domain.AuditFailed,
		Message:     "Unauthorized",
	}
}

func forbidden(reason string, status domain.AuditStatus) *Denial {
	return &Denial{
		Status:      http.StatusForbidden,
		Reason:      reason,
		AuditStatus: status,
		Message:     "Forbidden",
	}
}

// Evaluate decides whether rec satisfies c. It returns nil when access is
// granted.
func Evaluate(c Capability, rec *domain.RoleRecord) *Denial {
	if rec == nil {
		return forbidden(domain.ReasonRoleCheckFailed, domain.AuditBlocked)
	}
	if !rec.Role.Known() {
		return forbidden(domain.ReasonInsufficientRole, domain.AuditFailed)
	}

	switch c {
	case Admin:
		if !rec.Role.IsAdmin() {
			return forbidden(domain.ReasonInsufficientRole, domain.AuditFailed)
		}
	case Vendor, VendorApproved:
		if !rec.IsVendor() {
			if rec.UserType != domain.UserTypeVendor {
				return forbidden(domain.ReasonInsufficientRole, domain.AuditFailed)
			}
			return forbidden(domain.ReasonVendorProfileMissing, domain.AuditFailed)
		}
		reason := domain.ReasonVendorStatusPrefix + string(rec.VendorStatus)
		if rec.VendorStatus.IsBlocked() {
			d := forbidden(reason, domain.AuditBlocked)
			d.Message = "Vendor account is " + string(rec.VendorStatus)
			return d
		}
		if c == VendorApproved && rec.VendorStatus != domain.VendorApproved {
			d := forbidden(reason, domain.AuditFailed)
			d.Message = "Vendor account is not approved"
			return d
		}
	}
	return nil
}

// Auditor receives access-control failures.
type Auditor interface {
	Record(ctx context.Context, e domain.AuditEvent)
}

// Guard is the HTTP middleware factory enforcing capabilities.
type Guard struct {
	sessions session.Resolver
	roles    repository.RoleRepository
	auditor  Auditor
	logger   *slog.Logger
}

// NewGuard creates a Guard. roles must be the privileged lookup.
func NewGuard(sessions session.Resolver, roles repository.RoleRepository, auditor Auditor, logger *slog.Logger) *Guard {
	return &Guard{
		sessions: sessions,
		roles:    roles,
		auditor:  auditor,
		logger:   logger,
	}
}

// Require returns middleware admitting only callers that satisfy c.
func (g *Guard) Require(c Capability, mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			identity, err := session.FromRequest(ctx, g.sessions, r)
			if err != nil {
				if !errors.Is(err, session.ErrNoSession) {
					logger.WithContext(ctx, g.logger).WarnContext(ctx, "session resolution failed",
						slog.String("error", err.Error()),
					)
				}
				g.deny(w, r, c, mode, nil, "", unauthenticated())
				return
			}

			rec, err := g.roles.LookupRole(ctx, identity.UserID)
			if err != nil {
				logger.WithContext(ctx, g.logger).WarnContext(ctx, "role lookup failed",
					slog.String("user_id", identity.UserID),
					slog.String("error", err.Error()),
				)
				g.deny(w, r, c, mode, identity, "", forbidden(domain.ReasonRoleCheckFailed, domain.AuditBlocked))
				return
			}

			if d := Evaluate(c, rec); d != nil {
				g.deny(w, r, c, mode, identity, rec.Role, d)
				return
			}

			p := &domain.Principal{
				ID:           identity.UserID,
				Email:        firstNonEmpty(identity.Email, rec.Email),
				Role:         rec.Role,
				UserType:     rec.UserType,
				VendorStatus: rec.VendorStatus,
			}
			ctx = WithPrincipal(ctx, p)
			ctx = logger.WithUser(ctx, p.ID, string(p.Role))
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, logger.FromContext(ctx)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request, c Capability, mode Mode, identity *session.Identity, role domain.Role, d *Denial) {
	action := c.Action()
	denials.WithLabelValues(string(action), d.Reason).Inc()

	ip := middleware.ClientIP(r)
	event := domain.AuditEvent{
		Identifier: ip,
		Action:     action,
		Status:     d.AuditStatus,
		IP:         ip,
		UserAgent:  r.UserAgent(),
		Metadata: map[string]string{
			"reason": d.Reason,
			"method": r.Method,
			"path":   r.URL.Path,
		},
	}
	if identity != nil {
		event.UserID = identity.UserID
		if identity.Email != "" {
			event.Identifier = identity.Email
		}
	}
	if role != "" {
		event.Metadata["role"] = string(role)
	}
	g.auditor.Record(r.Context(), event)

	if mode == Page {
		target := "/"
		if d.Status == http.StatusUnauthorized {
			target = LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	code := "FORBIDDEN"
	if d.Status == http.StatusUnauthorized {
		code = "UNAUTHORIZED"
	}
	httputil.WriteJSON(w, d.Status, httputil.Response{
		Error:     d.Message,
		Code:      code,
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
