package types

import (
	"errors"
	"fmt"
)

// CustomError is the HTTP-facing error carrying a status code and an error type
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// Domain errors. Services wrap these with fmt.Errorf("%w: ...") so callers can
// test with errors.Is and still see which precondition failed.
var (
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrComplianceRequired   = errors.New("compliance required")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrDuplicateCode        = errors.New("duplicate code collision")
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation error")
	ErrForbidden            = errors.New("forbidden")
	ErrServiceUnavailable   = errors.New("service unavailable")
)

// ErrorType returns the short error type string used in API error envelopes
func ErrorType(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrComplianceRequired):
		return "compliance_required"
	case errors.Is(err, ErrInvalidOrExpiredCode):
		return "invalid_or_expired_code"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, ErrDuplicateCode):
		return "service_unavailable"
	}
	return "unknown"
}
