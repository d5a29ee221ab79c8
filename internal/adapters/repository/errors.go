package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidLimit = errors.New("invalid limit")
	ErrDuplicateRun = errors.New("duplicate run id")
	ErrOpen         = errors.New("open store")
)
