package checkout

import (
	"strings"

	"github.com/go-faster/errors"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrSubmissionInProgress = errors.New("submission already in progress")
	ErrNotRetryable         = errors.New("nothing to retry")
)

// ValidationError lists the form fields that block submission.
type ValidationError struct {
	Missing []Field
	Invalid []Field
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+join(e.Missing))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+join(e.Invalid))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func join(fields []Field) string {
	s := make([]string, len(fields))
	for i, f := range fields {
		s[i] = string(f)
	}
	return strings.Join(s, ", ")
}
