package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidOptions      = errors.New("invalid enhancement options")
	ErrInvalidStyle        = errors.New("invalid style input")
	ErrUnsupportedPlan     = errors.New("unsupported plan")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrLedgerUnavailable   = errors.New("ledger unavailable")
	ErrProviderFailure     = errors.New("provider failure")
	ErrNoImageData         = errors.New("no image data returned")
)
