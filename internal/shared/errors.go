package shared

import "errors"

// Error kinds shared by every ledger. Domain packages declare reason errors
// that unwrap to one of these so callers can match either level.
var (
	// ErrUnauthorized indicates the caller lacks the required role or approval.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState indicates the record is in the wrong lifecycle state.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidInput indicates a zero amount, unknown enum or malformed value.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientFunds indicates a payout larger than the pool balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientPayment indicates a fee payment below the tier fee.
	ErrInsufficientPayment = errors.New("insufficient payment")
)

var kinds = []error{
	ErrUnauthorized,
	ErrNotFound,
	ErrInvalidState,
	ErrInvalidInput,
	ErrInsufficientFunds,
	ErrInsufficientPayment,
}

// ReasonError is a rejected operation carrying a machine-readable code.
type ReasonError struct {
	Kind    error
	Code    string
	Message string
}

// NewReason declares a reason error of the given kind.
func NewReason(kind error, code, message string) *ReasonError {
	return &ReasonError{Kind: kind, Code: code, Message: message}
}

func (e *ReasonError) Error() string {
	return e.Message
}

func (e *ReasonError) Unwrap() error {
	return e.Kind
}

// ReasonCode extracts the machine code of err, falling back to the kind name.
func ReasonCode(err error) string {
	var reason *ReasonError
	if errors.As(err, &reason) {
		return reason.Code
	}
	switch KindOf(err) {
	case ErrUnauthorized:
		return "Unauthorized"
	case ErrNotFound:
		return "NotFound"
	case ErrInvalidState:
		return "InvalidState"
	case ErrInvalidInput:
		return "InvalidInput"
	case ErrInsufficientFunds:
		return "InsufficientFunds"
	case ErrInsufficientPayment:
		return "InsufficientPayment"
	}
	return ""
}

// KindOf returns the error kind err belongs to, or nil when it has none.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
