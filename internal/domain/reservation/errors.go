package reservation

import "errors"

var (
	// ErrInvalidTransition is returned for any state change the reservation
	// machine does not allow, including touching a terminal reservation.
	ErrInvalidTransition = errors.New("invalid reservation transition")

	// ErrOverConsumption is returned when a use would draw more than the
	// reservation still holds.
	ErrOverConsumption = errors.New("usage exceeds reserved quantity")

	ErrReservationNotFound = errors.New("reservation not found")
	ErrReasonRequired      = errors.New("reason is required")
	ErrEvidenceRequired    = errors.New("evidence reference is required")
)
