package errors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrExternalProvider  = errors.New("external provider error")
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrTopupNotFound     = errors.New("topup not found")
	ErrAlreadyFinalized  = errors.New("order already finalized")
	ErrStaleCancellation = errors.New("payment confirmed for canceled order")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidField      = errors.New("invalid field")
	ErrInvalidValue      = errors.New("invalid value")
	ErrBanned            = errors.New("account banned")
	ErrForbidden         = errors.New("forbidden")
)
