package library

import "errors"

var (
	ErrNotFound     = errors.New("library item not found")
	ErrInvalidInput = errors.New("invalid input")
)
