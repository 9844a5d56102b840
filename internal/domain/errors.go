package domain

import "errors"

// Error taxonomy shared by every layer. Wrap with fmt.Errorf("...: %w", ErrX) and match
// with errors.Is; the HTTP layer maps each sentinel to a status code.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("not authorized")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrConflict           = errors.New("already exists")
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrPaymentUnavailable = errors.New("payment authority unavailable")
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
)
