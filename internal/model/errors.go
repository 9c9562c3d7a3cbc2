package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these,
// so callers can branch with errors.Is.
var (
	// ErrValidation is returned before any state change; never retried.
	ErrValidation = errors.New("validation error")
	// ErrIntegrity aborts the enclosing operation and leaves state unchanged.
	ErrIntegrity = errors.New("integrity error")
	// ErrTransient covers asset and persistence I/O failures.
	ErrTransient = errors.New("transient I/O error")
)

var (
	ErrBlankLabel       = fmt.Errorf("%w: tag label cannot be blank", ErrValidation)
	ErrDuplicateLabel   = fmt.Errorf("%w: tag label must be unique", ErrValidation)
	ErrCyclicParent     = fmt.Errorf("%w: tag cannot be its own ancestor", ErrValidation)
	ErrUnknownTag       = fmt.Errorf("%w: unknown tag", ErrValidation)
	ErrRatingOutOfRange = fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, MinRating, MaxRating)
	ErrNotFound         = fmt.Errorf("%w: not found", ErrValidation)
	ErrIncognito        = fmt.Errorf("%w: incognito captures are disabled", ErrValidation)

	ErrCountMismatch = fmt.Errorf("%w: matched and modified counts differ", ErrIntegrity)
	ErrDuplicateHash = fmt.Errorf("%w: image hash held by more than one bookmark", ErrIntegrity)
	ErrDuplicateID   = fmt.Errorf("%w: duplicate id", ErrIntegrity)

	ErrAssetIO = fmt.Errorf("%w: asset", ErrTransient)
	ErrGateway = fmt.Errorf("%w: persistence", ErrTransient)
)
