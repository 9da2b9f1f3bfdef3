package market

import "errors"

var (
	ErrInvalidPrice        = errors.New("price must be greater than 0")
	ErrUnauthorized        = errors.New("caller not authorized for the token")
	ErrItemNotFound        = errors.New("item doesn't exist")
	ErrAlreadySold         = errors.New("item already sold")
	ErrInsufficientPayment = errors.New("not enough payment to cover item price and market fee")
	ErrTransferFailed      = errors.New("token custody transfer failed")
	ErrPaymentFailed       = errors.New("payment disbursement failed")
	ErrInvalidConfig       = errors.New("invalid marketplace configuration")
)
