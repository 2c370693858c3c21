package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/roorq/storefront/pkg/errors"
)

// upstreamError covers the error body shapes returned by the auth provider
// and by services using the storefront envelope.
type upstreamError struct {
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func (u upstreamError) message() string {
	for _, m := range []string{u.Msg, u.Message, u.ErrorDescription, rawString(u.Error)} {
		if m != "" {
			return m
		}
	}
	return ""
}

func (u upstreamError) code() string {
	if u.ErrorCode != "" {
		return u.ErrorCode
	}
	if c := rawString(u.Code); c != "" {
		return c
	}
	return rawString(u.Error)
}

func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// ParseResponseError reads a non-2xx response and translates it into an
// AppError when the body is structured. The body is consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var upstream upstreamError
	if json.Unmarshal(body, &upstream) == nil {
		if msg := upstream.message(); msg != "" {
			return mapUpstreamError(resp.StatusCode, upstream.code(), msg, serviceName)
		}
	}

	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(body))
}

func mapUpstreamError(status int, code, message, serviceName string) error {
	qualified := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualified)
	case status == http.StatusServiceUnavailable:
		return apperrors.Unavailable(qualified)
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	default:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status}
	}
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
