package service

import "errors"

var (
	ErrInvalidRating           = errors.New("rating must be an integer between 1 and 5")
	ErrInvalidIndex            = errors.New("alternative index must not be negative")
	ErrNoGeneratedAlternatives = errors.New("no generated alternatives to rate, please regenerate alternatives")
	ErrIndexOutOfBounds        = errors.New("alternative index out of range, please refresh")
	ErrRevisionConflict        = errors.New("record was modified concurrently, please refresh")
	ErrStoreUnavailable        = errors.New("record store unavailable")
	ErrGenerationFailed        = errors.New("generating alternatives failed")
)

// ErrEmptyTranscript is returned when there is no text to generate alternatives from
var ErrEmptyTranscript = errors.New("transcript is empty")
