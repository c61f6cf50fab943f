package myerrors

import "errors"

var (
	// ErrValidation - malformed or inconsistent request, the caller must fix the input.
	ErrValidation = errors.New("invalid request")
	// ErrNoAvailableAmbulance - transient capacity condition, retry later.
	ErrNoAvailableAmbulance = errors.New("no available ambulance")
	// ErrIllegalTransition - target status is not a successor of the current one.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrNotFound - referenced id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateBookingNumber - a concurrent creation minted the same number,
	// regenerate and retry.
	ErrDuplicateBookingNumber = errors.New("duplicate booking number")
)
