package services

import "errors"

// Dataset service errors
var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrInvalidLimit    = errors.New("limit must be a non-negative integer")
)
