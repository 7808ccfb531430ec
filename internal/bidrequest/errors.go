package bidrequest

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches every error returned by Parse and ParseBytes.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError describes why a document was rejected.
// Err holds the underlying decoder error when there is one.
type InvalidInputError struct {
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Reason, e.Err)
	}
	return "invalid input: " + e.Reason
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalidInput) hold regardless of the cause.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}
