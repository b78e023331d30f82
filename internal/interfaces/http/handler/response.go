package handler

import "github.com/bakery/orderdesk/internal/interfaces/http/dto"

// Envelope documents the body every dashboard endpoint answers with.
// Handlers build it through dto.Response; this type only feeds swag.
//
//	@Description	Dashboard response; data holds the payload, meta is set on paged order lists
type Envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorEnvelope documents a failed dashboard call, e.g. a forbidden order
// action or an unreachable order API.
//
//	@Description	Failure body with an error code such as ERR_FORBIDDEN or ERR_UPSTREAM_UNAVAILABLE
type ErrorEnvelope struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}
