// Package apperr holds the error taxonomy shared by repositories, services and handlers.
package apperr

import "errors"

var (
	// ErrNotFound: organization, user, lot or booking missing.
	ErrNotFound = errors.New("not found")

	// ErrValidation wraps request field errors.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidWindow: end <= start, window already over, or duration outside policy.
	ErrInvalidWindow = errors.New("invalid booking window")

	ErrNoLotsConfigured = errors.New("no parking lots configured")
	ErrNoAvailableSlot  = errors.New("no available slot")

	// ErrSlotConflict is safe to retry from scratch.
	ErrSlotConflict = errors.New("slot conflict")

	// ErrInvariantViolation means the slot ledger would leave [0, total_slots].
	ErrInvariantViolation = errors.New("slot ledger invariant violation")

	ErrNotActive            = errors.New("booking is not active")
	ErrNotOverstay          = errors.New("booking is not in overstay")
	ErrInvalidTransition    = errors.New("invalid booking status transition")
	ErrEarlyEntry           = errors.New("entry before booking start")
	ErrLotInUse             = errors.New("parking lot has open bookings")
	ErrDuplicateLotName     = errors.New("parking lot name already used in organization")
	ErrOrganizationInactive = errors.New("organization is inactive")
	ErrForbidden            = errors.New("forbidden")
)
