package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound        = errors.New("not found")
	ErrEmptyCatalog    = errors.New("empty catalog")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)
