// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/healthpool/riskpool/internal/shared"
)

// Transport-level sentinel errors.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// RespondError maps ledger error kinds to RFC7807 responses.
func RespondError(w http.ResponseWriter, err error) {
	code := shared.ReasonCode(err)
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthenticated", err.Error(), "Unauthenticated")
	case errors.As(err, &validationErrs), errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error(), "InvalidInput")
	case errors.Is(err, shared.ErrUnauthorized):
		Problem(w, http.StatusForbidden, "Unauthorized", err.Error(), code)
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error(), code)
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error(), code)
	case errors.Is(err, shared.ErrInvalidInput):
		Problem(w, http.StatusBadRequest, "Invalid Input", err.Error(), code)
	case errors.Is(err, shared.ErrInsufficientFunds):
		Problem(w, http.StatusUnprocessableEntity, "Insufficient Funds", err.Error(), code)
	case errors.Is(err, shared.ErrInsufficientPayment):
		Problem(w, http.StatusUnprocessableEntity, "Insufficient Payment", err.Error(), code)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "", "")
	}
}
