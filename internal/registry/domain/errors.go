package domain

import "errors"

// Domain errors
var (
	ErrInvalidKind        = errors.New("invalid resource kind")
	ErrInvalidExtension   = errors.New("invalid extension config")
	ErrDuplicateExtension = errors.New("extension already registered")
)
