package domain

import "errors"

// Pipeline errors. Each is fatal for the run unless a caller documents a recovery.
var (
	// ErrUnsupportedConfig is returned for an unknown tail, response type, product
	// or a product without a growing-season calendar.
	ErrUnsupportedConfig = errors.New("unsupported configuration")

	// ErrDuplicatePartner is returned when a reporter lists the same partner twice.
	ErrDuplicatePartner = errors.New("data integrity: duplicate trade partner")

	// ErrInconsistentSelfTrade is returned when a self-edge survives with self-trade disabled.
	ErrInconsistentSelfTrade = errors.New("data integrity: self-trade present with self-trade disabled")

	// ErrUnknownCountry is returned when a region code is missing from the polygon table.
	ErrUnknownCountry = errors.New("unknown country code")

	// ErrShapeMismatch is returned when arrays disagree in grid or dimension sizes.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInsufficientData is returned when a selection leaves nothing to compute on.
	ErrInsufficientData = errors.New("insufficient data")
)
