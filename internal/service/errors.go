package service

import "errors"

var (
	ErrPaymentIDRequired    = errors.New("payment id required")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrEmailInUse           = errors.New("email in use by another account")
	ErrInvalidCode          = errors.New("invalid verification code")
	ErrCodeExpired          = errors.New("verification code expired")
	ErrWrongEmail           = errors.New("unknown email")
	ErrWrongPassword        = errors.New("wrong password")
	ErrProductNotFound      = errors.New("product not found")
	ErrCouponExists         = errors.New("coupon already exists")
	ErrCouponNotFound       = errors.New("coupon not found")
	ErrCouponInvalid        = errors.New("coupon invalid or inactive")
	ErrHistoryEntryNotFound = errors.New("history entry not found")
	ErrForbidden            = errors.New("admin only")
)

// ValidationError rejects a request before any state changes. Message is shown to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }
