package ltv

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInputs is the only error the core returns. It is always
// recoverable: callers clear prior output and ask for corrected input.
var ErrInvalidInputs = errors.New("inputs invalid")

type Violation struct {
	Field   string  `json:"field"`
	Value   float64 `json:"value"`
	Message string  `json:"message"`
}

type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s %s (got %g)", v.Field, v.Message, v.Value))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInputs, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInputs }

// Fields returns the names of the rejected fields in check order.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Field)
	}
	return out
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
