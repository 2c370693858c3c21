package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/roorq/storefront/internal/access"
	"github.com/roorq/storefront/internal/csrf"
	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/pkg/httputil"
	"github.com/roorq/storefront/pkg/validator"
)

const maxBodyBytes = 1 << 20

// csrfField is embedded first in every mutating request body so a missing
// token is the first validation error reported.
type csrfField struct {
	CSRF string `json:"csrf" validate:"required,min=16"`
}

func (c csrfField) csrfToken() string { return c.CSRF }

type csrfCarrier interface {
	csrfToken() string
}

// decodeMutation decodes and validates a JSON mutation body, then checks its
// CSRF token against the cookie. It writes the error response and returns
// false on any failure.
func decodeMutation(w http.ResponseWriter, r *http.Request, gate *csrf.Gate, dst csrfCarrier, logger *slog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := validator.DecodeAndValidate(r, dst); err != nil {
		var valErr *validator.ValidationError
		if errors.As(err, &valErr) {
			httputil.WriteValidationError(w, err)
			return false
		}
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: "invalid request body",
			Code:  "INVALID_INPUT",
		})
		return false
	}

	if err := gate.Validate(r, dst.csrfToken()); err != nil {
		httputil.WriteError(w, r, err, logger)
		return false
	}
	return true
}

// principal returns the caller admitted by the access guard.
func principal(r *http.Request) *domain.Principal {
	return access.PrincipalFromContext(r.Context())
}

func writeInvalidParam(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: message,
		Code:  "INVALID_PARAMETER",
	})
}
