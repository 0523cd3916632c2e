package intake

import "errors"

// ErrDuplicateReference is returned when the payment reference already belongs to another order
var ErrDuplicateReference = errors.New("reference already used")

// ValidationError is a caller mistake reported verbatim with status 400
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

const (
	msgAmountMismatch = "Amount mismatch. Please refresh quote and try again."
	msgQuoteMismatch  = "Quote mismatch. Please refresh quote and try again."
)
