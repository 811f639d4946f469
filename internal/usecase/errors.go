package usecase

import "errors"

// Business-rule violations surface as sentinel errors so handlers can map each
// kind to a stable status code with errors.Is. Store failures are wrapped
// separately and never conflated with these.
var (
	// ErrCapacityExceeded is returned when adding seats would push a schedule
	// past the configured maximum. Recoverable by the caller.
	ErrCapacityExceeded = errors.New("maximum participants exceeded")

	// ErrUnderflow is returned when removing more seats than are confirmed.
	// This indicates an upstream consistency bug and is never clamped.
	ErrUnderflow = errors.New("cannot remove more participants than are confirmed")

	// ErrAlreadyConfirmed is returned when confirm is called on a reservation
	// that is already confirmed. Repeat confirms are rejected, not no-ops.
	ErrAlreadyConfirmed = errors.New("reservation is already confirmed")

	// ErrDeadlinePassed is returned when a reservation is created after the
	// schedule's reservation deadline.
	ErrDeadlinePassed = errors.New("reservation deadline has passed")

	// ErrNotFound is returned when a record does not exist or is filtered out
	// by ownership rules.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a user attempts an operation reserved for
	// admins, such as touching a confirmed reservation.
	ErrForbidden = errors.New("forbidden")
)
