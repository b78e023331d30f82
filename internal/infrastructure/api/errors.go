package api

import (
	"fmt"
	"net/http"

	"github.com/bakery/orderdesk/internal/domain/shared"
)

// Error is a non-2xx answer from the order service
type Error struct {
	Method  string `json:"-"`
	Path    string `json:"-"`
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// Unwrap maps the status onto the shared domain errors
func (e *Error) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return shared.ErrNotFound
	case e.Status == http.StatusUnauthorized:
		return shared.ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return shared.ErrForbidden
	case e.Status == http.StatusBadGateway,
		e.Status == http.StatusServiceUnavailable,
		e.Status == http.StatusGatewayTimeout:
		return shared.ErrUpstreamDown
	}
	return shared.ErrUpstream
}

// serverFault reports whether the breaker should count e as a failure
func (e *Error) serverFault() bool { return e.Status >= 500 || e.Status == http.StatusTooManyRequests }

// unavailable wraps transport failures and an open breaker
type unavailable struct{ err error }

func (u *unavailable) Error() string { return "order service unavailable: " + u.err.Error() }

func (u *unavailable) Unwrap() []error { return []error{shared.ErrUpstreamDown, u.err} }
