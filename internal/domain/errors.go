package domain

import "errors"

var (
	ErrRecordNotFound           = errors.New("record not found")
	ErrUserAlreadyExists        = errors.New("user already exists")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrSeatUnavailable          = errors.New("seat(s) are no longer available")
	ErrSeatConflict             = errors.New("seat state changed concurrently")
	ErrSeatNotFound             = errors.New("seat does not exist for this showtime")
	ErrHoldExpired              = errors.New("hold has expired, please select your seats again")
	ErrCancellationWindowClosed = errors.New("booking can no longer be cancelled")
	ErrBookingNotCancellable    = errors.New("booking is not in a cancellable state")
	ErrPaymentFailed            = errors.New("payment was declined")
)
