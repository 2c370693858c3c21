package http

import (
	"log/slog"
	"net/http"

	"github.com/roorq/storefront/internal/csrf"
	"github.com/roorq/storefront/pkg/httputil"
)

// CSRFHandler hands out the double-submit token.
type CSRFHandler struct {
	gate   *csrf.Gate
	logger *slog.Logger
}

// NewCSRFHandler creates a new CSRF HTTP handler.
func NewCSRFHandler(gate *csrf.Gate, logger *slog.Logger) *CSRFHandler {
	return &CSRFHandler{gate: gate, logger: logger}
}

// TokenResponse is the body of GET /api/csrf.
type TokenResponse struct {
	Token string `json:"token"`
}

// Token handles GET /api/csrf. It reuses the cookie's token when present.
func (h *CSRFHandler) Token(w http.ResponseWriter, r *http.Request) {
	token, err := h.gate.IssueOrReuse(w, r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, TokenResponse{Token: token})
}
