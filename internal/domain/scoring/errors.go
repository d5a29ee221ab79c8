package scoring

import "errors"

var (
	ErrInvalidSettings   = errors.New("invalid scoring settings")
	ErrUnknownAdjustment = errors.New("unknown adjustment step")
	ErrInvalidMultiplier = errors.New("invalid past performance multiplier")
	ErrNonFiniteScore    = errors.New("non-finite score")
)
