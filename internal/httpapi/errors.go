package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/joelkehle/cohort-ltv/internal/ltv"
)

const (
	CodeInvalidInputs = "invalid_inputs"
	CodeValidation    = "validation"
	CodeLimitExceeded = "limit_exceeded"
	CodeRenderFailed  = "render_failed"
	CodeUnavailable   = "unavailable"
	CodeInternal      = "internal"
)

// Error is a coded API failure rendered as the standard error envelope.
type Error struct {
	Code       string
	Message    string
	Transient  bool
	Status     int
	Violations []ltv.Violation
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func statusForCode(code string) int {
	switch code {
	case CodeInvalidInputs, CodeValidation, CodeLimitExceeded:
		return http.StatusBadRequest
	case CodeRenderFailed:
		return http.StatusBadGateway
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newError(code, message string, transient bool) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Transient: transient,
		Status:    statusForCode(code),
	}
}

// apiError maps err to an *Error. Validation failures keep their
// per-field violations.
func apiError(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if ve, ok := ltv.AsValidationError(err); ok {
		e := newError(CodeInvalidInputs, ve.Error(), false)
		e.Violations = ve.Violations
		return e
	}
	return newError(CodeInternal, err.Error(), true)
}

func errorPayload(e *Error) map[string]any {
	body := map[string]any{
		"code":      e.Code,
		"message":   e.Message,
		"transient": e.Transient,
	}
	if len(e.Violations) > 0 {
		body["violations"] = e.Violations
	}
	return map[string]any{"ok": false, "error": body}
}
