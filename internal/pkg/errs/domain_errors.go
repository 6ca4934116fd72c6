package errs

import "errors"

// Domain-specific sentinel errors for the intake / decision usecase layers
var (
	// Reservation errors
	ErrReservationNotFound = errors.New("reservation not found")
	ErrVersionConflict     = errors.New("reservation version conflict")
	ErrInvalidTransition   = errors.New("invalid status transition")

	// Validation errors
	ErrDomainValidation = errors.New("domain validation error")

	// Operation errors
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)
